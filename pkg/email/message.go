package email

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Header placeholders for messages that omit a field.
const (
	NoSubject   = "No Subject"
	NoSender    = "No Sender"
	NoRecipient = "No Recipient"
	NoDate      = "No Date"
)

// maxDepth bounds multipart nesting.
const maxDepth = 16

// Message is the decoded subset of an RFC 5322 message.
type Message struct {
	From    string `json:"from_addr"`
	To      string `json:"to_addr"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Body    string `json:"body"`
}

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", charset, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// ParseMessage decodes the headers of raw and the first text/plain part,
// searched depth-first. A message that is not multipart contributes its
// whole body. Only unreadable headers are an error; the body is best-effort.
func ParseMessage(raw []byte) (Message, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Message{}, fmt.Errorf("empty message")
	}
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return Message{}, fmt.Errorf("read headers: %w", err)
	}
	msg := Message{
		From:    header(m.Header, "From", NoSender),
		To:      header(m.Header, "To", NoRecipient),
		Subject: header(m.Header, "Subject", NoSubject),
		Date:    header(m.Header, "Date", NoDate),
	}
	ct := m.Header.Get("Content-Type")
	if body, ok := plainPart(textproto.MIMEHeader(m.Header), m.Body, 0); ok {
		msg.Body = body
	} else if !strings.HasPrefix(strings.ToLower(ct), "multipart/") {
		msg.Body = decodeBody(textproto.MIMEHeader(m.Header), m.Body)
	}
	return msg, nil
}

// header returns the decoded header or def when it is absent.
func header(h mail.Header, key, def string) string {
	if _, ok := h[textproto.CanonicalMIMEHeaderKey(key)]; !ok {
		return def
	}
	v := h.Get(key)
	if dec, err := wordDecoder.DecodeHeader(v); err == nil {
		return dec
	}
	return v
}

// plainPart walks one entity and returns the first text/plain body found.
func plainPart(h textproto.MIMEHeader, body io.Reader, depth int) (string, bool) {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		mediaType = "text/plain"
	}
	switch {
	case mediaType == "text/plain":
		return decodeBody(h, body), true
	case strings.HasPrefix(mediaType, "multipart/") && depth < maxDepth:
		boundary := params["boundary"]
		if boundary == "" {
			return "", false
		}
		mr := multipart.NewReader(body, boundary)
		for {
			p, err := mr.NextRawPart()
			if err != nil {
				return "", false
			}
			if s, ok := plainPart(p.Header, p, depth+1); ok {
				return s, true
			}
		}
	}
	return "", false
}

// decodeBody undoes the transfer encoding and converts the declared charset
// to UTF-8. Undecodable bytes are dropped.
func decodeBody(h textproto.MIMEHeader, body io.Reader) string {
	var r io.Reader = body
	switch strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding"))) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, &spaceless{r: bufio.NewReader(body)})
	case "quoted-printable":
		r = quotedprintable.NewReader(body)
	}
	data, _ := io.ReadAll(r)

	_, params, _ := mime.ParseMediaType(h.Get("Content-Type"))
	if cs := params["charset"]; cs != "" {
		if enc, err := htmlindex.Get(cs); err == nil {
			if dec, err := enc.NewDecoder().Bytes(data); err == nil {
				data = dec
			}
		}
	}
	return strings.ToValidUTF8(string(data), "")
}

// spaceless drops the blanks some mailers leave inside base64 bodies.
// The base64 decoder already skips CR and LF.
type spaceless struct {
	r *bufio.Reader
}

func (s *spaceless) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := s.r.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if b == ' ' || b == '\t' {
			continue
		}
		p[n] = b
		n++
	}
	return n, nil
}
