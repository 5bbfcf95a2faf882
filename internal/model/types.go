package model

import "time"

// SubmissionType is fixed at creation and never changes.
type SubmissionType string

const (
	SubmissionTypeMessage SubmissionType = "MESSAGE"
	SubmissionTypeFile    SubmissionType = "FILE"
)

// Valid reports whether t is a known submission type.
func (t SubmissionType) Valid() bool {
	return t == SubmissionTypeMessage || t == SubmissionTypeFile
}

type ScheduleType string

const (
	ScheduleTypeNone      ScheduleType = "NONE"
	ScheduleTypeSingle    ScheduleType = "SINGLE"
	ScheduleTypeRecurring ScheduleType = "RECURRING"
)

func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleTypeNone, ScheduleTypeSingle, ScheduleTypeRecurring:
		return true
	}
	return false
}

// Schedule is only meaningful when Submission.IsScheduled is true.
// ScheduledFor holds an RFC3339 timestamp for SINGLE and a cron expression for RECURRING.
type Schedule struct {
	ScheduleType ScheduleType `json:"scheduleType"`
	ScheduledFor string       `json:"scheduledFor,omitempty"`
}

// NullAccountID is the account reference carried by a submission's default option.
const NullAccountID = "NULL"

// Metadata keys used by FILE submissions.
const (
	MetadataOrder        = "order"
	MetadataFileMetadata = "fileMetadata"
)

// FieldData holds destination-specific field values.
type FieldData map[string]any

// Submission is the aggregate root: options and files are owned by it.
type Submission struct {
	ID          string            `json:"id"`
	Type        SubmissionType    `json:"type"`
	Options     []*WebsiteOption  `json:"options"`
	Files       []*SubmissionFile `json:"files"`
	IsScheduled bool              `json:"isScheduled"`
	Schedule    Schedule          `json:"schedule"`
	Metadata    map[string]any    `json:"metadata"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// DefaultOption returns the option flagged as default, or nil.
func (s *Submission) DefaultOption() *WebsiteOption {
	for _, o := range s.Options {
		if o.IsDefault {
			return o
		}
	}
	return nil
}

// FileByID returns the attached file with the given id, or nil.
func (s *Submission) FileByID(id string) *SubmissionFile {
	for _, f := range s.Files {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// WebsiteOption carries the per-destination (or default) field values of a submission.
type WebsiteOption struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	AccountID    string    `json:"accountId"`
	Data         FieldData `json:"data"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Account is a destination identity. Options reference it by id only.
type Account struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Website   string         `json:"website"`
	Groups    []string       `json:"groups"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// FileBlob points at stored bytes. ParentID is the owning SubmissionFile.
type FileBlob struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId"`
	Path     string `json:"path"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// SubmissionFile is one attachment of a FILE submission.
type SubmissionFile struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	FileName     string    `json:"fileName"`
	MimeType     string    `json:"mimeType"`
	Hash         string    `json:"hash"`
	Size         int64     `json:"size"`
	File         *FileBlob `json:"file,omitempty"`
	Thumbnail    *FileBlob `json:"thumbnail,omitempty"`
	AltFile      *FileBlob `json:"altFile,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ImportAction string

const (
	ImportActionNewSubmission   ImportAction = "NEW_SUBMISSION"
	ImportActionAddToSubmission ImportAction = "ADD_TO_SUBMISSION"
)

func (a ImportAction) Valid() bool {
	return a == ImportActionNewSubmission || a == ImportActionAddToSubmission
}

// DirectoryWatcher describes one watched folder. SubmissionIDs only apply to ADD_TO_SUBMISSION.
type DirectoryWatcher struct {
	ID            string       `json:"id"`
	Path          string       `json:"path"`
	ImportAction  ImportAction `json:"importAction"`
	SubmissionIDs []string     `json:"submissionIds"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// SettingsOptions is the user-editable part of a settings profile.
type SettingsOptions struct {
	HiddenWebsites []string `json:"hiddenWebsites"`
}

type Settings struct {
	ID        string          `json:"id"`
	Profile   string          `json:"profile"`
	Settings  SettingsOptions `json:"settings"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
