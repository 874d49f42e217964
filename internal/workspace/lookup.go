package workspace

import (
	"context"
	"fmt"

	"github.com/Velocidex/ordereddict"

	"github.com/joshuapare/samkit/pkg/email"
	"github.com/joshuapare/samkit/pkg/evidence"
	"github.com/joshuapare/samkit/pkg/hive"
	"github.com/joshuapare/samkit/pkg/record"
	"github.com/joshuapare/samkit/pkg/sam"
	"github.com/joshuapare/samkit/pkg/types"
)

// withUsers opens the SAM hive of partition for one request and calls fn
// with its Users key.
func (w *Workspace) withUsers(ctx context.Context, partition int, fn func(users hive.Key) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := w.lock(partition)
	l.RLock()
	defer l.RUnlock()

	h, err := w.openSAM(ctx, partition)
	if err != nil {
		return err
	}
	defer h.Close()
	users, err := h.Resolve(w.cfg.Evidence.UsersKey)
	if err != nil {
		return err
	}
	return fn(users)
}

func (w *Workspace) accountValue(ctx context.Context, partition int, rid sam.RID, name string) ([]byte, error) {
	var blob []byte
	err := w.withUsers(ctx, partition, func(users hive.Key) error {
		var err error
		blob, err = sam.FindAccountValue(users, rid, name)
		return err
	})
	return blob, err
}

// ListAccounts returns the Names index of partition's SAM hive.
func (w *Workspace) ListAccounts(ctx context.Context, partition int) ([]sam.Name, error) {
	var names []sam.Name
	err := w.withUsers(ctx, partition, func(users hive.Key) error {
		var err error
		names, err = sam.AccountNames(users)
		return err
	})
	return names, err
}

// UserFValue decodes the F value of account rid.
func (w *Workspace) UserFValue(ctx context.Context, partition int, rid sam.RID) (*ordereddict.Dict, error) {
	blob, err := w.accountValue(ctx, partition, rid, "F")
	if err != nil {
		return nil, err
	}
	return record.DecodeF(blob, w.cfg.Schemas.F)
}

// UserFlags decodes the account control flags of account rid. The RID
// stored in the F value must match the key it was found under.
func (w *Workspace) UserFlags(ctx context.Context, partition int, rid sam.RID) (record.FlagReport, error) {
	blob, err := w.accountValue(ctx, partition, rid, "F")
	if err != nil {
		return record.FlagReport{}, err
	}
	report, err := record.FlagsFromF(blob, w.cfg.Schemas.UAC)
	if err != nil {
		return record.FlagReport{}, err
	}
	if sam.RID(report.RID) != rid {
		return record.FlagReport{}, &types.Error{
			Kind:      types.ErrKindParse,
			Msg:       fmt.Sprintf("F value of account %s records RID %d", rid.KeyName(), report.RID),
			Partition: partition,
			Key:       w.cfg.Evidence.UsersKey + `\` + rid.KeyName(),
		}
	}
	return report, nil
}

// UserVValue decodes the V value of account rid.
func (w *Workspace) UserVValue(ctx context.Context, partition int, rid sam.RID) (*ordereddict.Dict, error) {
	blob, err := w.accountValue(ctx, partition, rid, "V")
	if err != nil {
		return nil, err
	}
	return record.DecodeV(blob, w.cfg.Schemas.V)
}

// Username resolves rid to an account name through the Names index,
// falling back to the username stored in the account's V value.
func (w *Workspace) Username(ctx context.Context, partition int, rid sam.RID) (string, error) {
	var name string
	err := w.withUsers(ctx, partition, func(users hive.Key) error {
		if names, err := sam.AccountNames(users); err == nil {
			for _, n := range names {
				if n.RID == rid {
					name = n.Name
					return nil
				}
			}
		}
		blob, err := sam.FindAccountValue(users, rid, "V")
		if err != nil {
			return err
		}
		v, err := record.DecodeV(blob, w.cfg.Schemas.V)
		if err != nil {
			return err
		}
		if s, ok := v.Get("username"); ok {
			name, _ = s.(string)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", &types.Error{Kind: types.ErrKindNotFound, Msg: fmt.Sprintf("account %d has no username", rid), Partition: partition}
	}
	return name, nil
}

// UserEmails collects and parses the mail files in account rid's profile.
func (w *Workspace) UserEmails(ctx context.Context, partition int, rid sam.RID) ([]email.Artifact, error) {
	username, err := w.Username(ctx, partition, rid)
	if err != nil {
		return nil, err
	}
	sess, err := w.resolver.OpenSession(ctx, evidence.PartitionAddress{Container: w.image, Index: partition})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	c := email.NewCollector(email.Options{
		Extension:       w.cfg.Email.Extension,
		CaseInsensitive: w.cfg.Email.CaseInsensitive,
		Logger:          w.log,
	})
	arts, err := c.CollectUser(ctx, sess, w.cfg.Email.ProfileTemplate, username)
	if err != nil {
		return nil, err
	}
	w.log.Info("collected mail", "partition", partition, "rid", uint32(rid), "username", username, "count", len(arts))
	return arts, nil
}
