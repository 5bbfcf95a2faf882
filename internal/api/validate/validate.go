package validate

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mycelian/postybirb/internal/model"
)

// ID checks that a path parameter is a UUID.
func ID(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, err := uuid.Parse(v); err != nil {
		return fmt.Errorf("%s must be a UUID", field)
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// SubmissionType parses the kind segment of a URL.
func SubmissionType(v string) (model.SubmissionType, error) {
	t := model.SubmissionType(v)
	if !t.Valid() {
		return "", fmt.Errorf("unknown submission type %q", v)
	}
	return t, nil
}

// -------- Request specific helpers ----------

// CreateSubmission checks the envelope only; type rules live in the service.
func CreateSubmission(name string) error {
	return MaxLen("name", &name, 256)
}

func CreateAccount(name, website string) error {
	if err := NonEmpty("name", name); err != nil {
		return err
	}
	if err := NonEmpty("website", website); err != nil {
		return err
	}
	return MaxLen("name", &name, 100)
}
