// Command samctl inspects Windows user accounts and mail in a forensic disk
// image: it locates the Windows partitions, extracts the SAM hive and
// decodes the per-account records.
package main

import (
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	execute()
}
