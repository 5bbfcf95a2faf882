package model

// EntityKind names a concrete persisted record type. Change events are grouped by it.
type EntityKind string

const (
	KindSubmission       EntityKind = "submission"
	KindWebsiteOption    EntityKind = "website_option"
	KindSubmissionFile   EntityKind = "submission_file"
	KindAccount          EntityKind = "account"
	KindDirectoryWatcher EntityKind = "directory_watcher"
	KindSettings         EntityKind = "settings"
)

// Entity is implemented by every record the store persists.
type Entity interface {
	EntityKind() EntityKind
	EntityID() string
}

func (s *Submission) EntityKind() EntityKind { return KindSubmission }
func (s *Submission) EntityID() string       { return s.ID }

func (o *WebsiteOption) EntityKind() EntityKind { return KindWebsiteOption }
func (o *WebsiteOption) EntityID() string       { return o.ID }

func (f *SubmissionFile) EntityKind() EntityKind { return KindSubmissionFile }
func (f *SubmissionFile) EntityID() string       { return f.ID }

func (a *Account) EntityKind() EntityKind { return KindAccount }
func (a *Account) EntityID() string       { return a.ID }

func (w *DirectoryWatcher) EntityKind() EntityKind { return KindDirectoryWatcher }
func (w *DirectoryWatcher) EntityID() string       { return w.ID }

func (s *Settings) EntityKind() EntityKind { return KindSettings }
func (s *Settings) EntityID() string       { return s.ID }
