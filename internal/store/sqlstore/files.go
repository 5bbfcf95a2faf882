package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/mycelian/postybirb/internal/events"
	"github.com/mycelian/postybirb/internal/model"
)

type files struct{ s *Store }

const fileColumns = `id, submission_id, file_name, mime_type, hash, size, file, thumbnail, alt_file, created_at`

func insertFile(ctx context.Context, c conn, f *model.SubmissionFile) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	blob, thumb, alt, err := encodeBlobs(f)
	if err != nil {
		return err
	}
	if _, err := c.exec(ctx, `INSERT INTO submission_files (`+fileColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.SubmissionID, f.FileName, f.MimeType, f.Hash, f.Size, blob, thumb, alt, formatTime(f.CreatedAt)); err != nil {
		return classify(err, "insert submission file "+f.ID)
	}
	return nil
}

func encodeBlobs(f *model.SubmissionFile) (blob, thumb, alt string, err error) {
	if blob, err = toJSON(f.File); err != nil {
		return
	}
	if thumb, err = toJSON(f.Thumbnail); err != nil {
		return
	}
	alt, err = toJSON(f.AltFile)
	return
}

func listFiles(ctx context.Context, c conn, where string, args ...any) ([]*model.SubmissionFile, error) {
	rows, err := c.query(ctx, `SELECT `+fileColumns+` FROM submission_files `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list submission files")
	}
	defer func() { _ = rows.Close() }()
	out := []*model.SubmissionFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, errors.Wrap(rows.Err(), "list submission files")
}

func scanFile(row rowScanner) (*model.SubmissionFile, error) {
	var (
		f                     model.SubmissionFile
		blob, thumb, alt, cat string
	)
	if err := row.Scan(&f.ID, &f.SubmissionID, &f.FileName, &f.MimeType, &f.Hash, &f.Size, &blob, &thumb, &alt, &cat); err != nil {
		return nil, err
	}
	if err := fromJSON(blob, &f.File); err != nil {
		return nil, err
	}
	if err := fromJSON(thumb, &f.Thumbnail); err != nil {
		return nil, err
	}
	if err := fromJSON(alt, &f.AltFile); err != nil {
		return nil, err
	}
	f.CreatedAt = parseTime(cat)
	return &f, nil
}

func (r *files) Create(ctx context.Context, f *model.SubmissionFile) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		if err := insertFile(ctx, c, f); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeCreate, f)}, nil
	})
}

func (r *files) Get(ctx context.Context, id string) (*model.SubmissionFile, error) {
	f, err := scanFile(r.s.conn().queryRow(ctx, `SELECT `+fileColumns+` FROM submission_files WHERE id=?`, id))
	if err != nil {
		return nil, classify(err, "submission file "+id)
	}
	return f, nil
}

func (r *files) ListBySubmission(ctx context.Context, submissionID string) ([]*model.SubmissionFile, error) {
	return listFiles(ctx, r.s.conn(), `WHERE submission_id=?`, submissionID)
}

func (r *files) Update(ctx context.Context, f *model.SubmissionFile) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		blob, thumb, alt, err := encodeBlobs(f)
		if err != nil {
			return nil, err
		}
		res, err := c.exec(ctx, `UPDATE submission_files SET file_name=?, mime_type=?, hash=?, size=?, file=?, thumbnail=?, alt_file=? WHERE id=?`,
			f.FileName, f.MimeType, f.Hash, f.Size, blob, thumb, alt, f.ID)
		if err != nil {
			return nil, classify(err, "update submission file "+f.ID)
		}
		if err := requireAffected(res, "submission file "+f.ID); err != nil {
			return nil, err
		}
		return []events.Change{change(events.ChangeUpdate, f)}, nil
	})
}

func (r *files) Delete(ctx context.Context, id string) error {
	return r.s.mutate(ctx, func(ctx context.Context, c conn) ([]events.Change, error) {
		f, err := scanFile(c.queryRow(ctx, `SELECT `+fileColumns+` FROM submission_files WHERE id=?`, id))
		if err != nil {
			return nil, classify(err, "submission file "+id)
		}
		if _, err := c.exec(ctx, `DELETE FROM submission_files WHERE id=?`, id); err != nil {
			return nil, classify(err, "delete submission file "+id)
		}
		return []events.Change{change(events.ChangeDelete, f)}, nil
	})
}
