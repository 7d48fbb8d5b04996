// Package form holds the in-memory representation of an editable form and
// the editing operations over it. A Document is owned by exactly one editing
// session; operations are pure and return updated copies, so documents can
// be compared by value in tests and never share hidden state.
package form

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	ShortText    QuestionType = "short_text"
	LongText     QuestionType = "long_text"
	FileUpload   QuestionType = "document"
	Phone        QuestionType = "phone"
	Number       QuestionType = "number"
	SingleChoice QuestionType = "single_choice"
	Date         QuestionType = "date"
	Dropdown     QuestionType = "dropdown"
	Email        QuestionType = "email"
	Region       QuestionType = "region"
)

// AllQuestionTypes lists every member of the closed enumeration, in display
// order.
var AllQuestionTypes = []QuestionType{
	ShortText, LongText, FileUpload, Phone, Number,
	SingleChoice, Date, Dropdown, Email, Region,
}

// Valid reports whether t is a member of the closed enumeration.
func (t QuestionType) Valid() bool {
	for _, qt := range AllQuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// HasChoices reports whether questions of this type carry a choice list.
func (t QuestionType) HasChoices() bool {
	return t == SingleChoice || t == Dropdown
}

// AnswerConfig is the type-specific configuration attached to certain
// question types. Exactly one concrete variant exists per configurable type;
// questions of other types carry a nil config.
type AnswerConfig interface {
	answerConfig()
}

// AttachedFile records the single retained upload slot of a document
// question. Uploading a new file replaces the slot.
type AttachedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DocumentConfig configures a file-upload question.
type DocumentConfig struct {
	Extensions []string      `json:"extensions"`
	MaxSizeMB  int           `json:"max_size_mb"`
	File       *AttachedFile `json:"file,omitempty"`
	// MultipleFiles is present in the stored shape but dormant: uploads
	// always replace the single slot regardless of its value.
	MultipleFiles bool `json:"multiple_files"`
}

// PhoneFormat selects the expected phone number notation.
type PhoneFormat string

const (
	PhoneInternational PhoneFormat = "international"
	PhoneNational      PhoneFormat = "national"
)

// PhoneConfig configures a phone question.
type PhoneConfig struct {
	Format PhoneFormat `json:"format"`
}

// NumberConfig configures a number question. Bounds are reserved: defined
// but not enforced by any consumer yet.
type NumberConfig struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// DateConfig is an empty marker, reserved for future date constraints.
type DateConfig struct{}

// EmailConfig configures an email question. A nil Domains slice means any
// domain is accepted.
type EmailConfig struct {
	Domains []string `json:"domains,omitempty"`
}

func (*DocumentConfig) answerConfig() {}
func (*PhoneConfig) answerConfig()    {}
func (*NumberConfig) answerConfig()   {}
func (*DateConfig) answerConfig()     {}
func (*EmailConfig) answerConfig()    {}

// DefaultExtensions is the initial allow-list of a new document question.
var DefaultExtensions = []string{".pdf", ".doc", ".docx", ".txt"}

// DefaultMaxSizeMB is the initial upload size limit of a document question.
const DefaultMaxSizeMB = 5

// DefaultConfig returns the initial configuration for a question of type t,
// or nil for types that carry none.
func DefaultConfig(t QuestionType) AnswerConfig {
	switch t {
	case FileUpload:
		return &DocumentConfig{
			Extensions: append([]string(nil), DefaultExtensions...),
			MaxSizeMB:  DefaultMaxSizeMB,
		}
	case Phone:
		return &PhoneConfig{Format: PhoneInternational}
	case Number:
		return &NumberConfig{}
	case Date:
		return &DateConfig{}
	case Email:
		return &EmailConfig{}
	default:
		return nil
	}
}

// DefaultChoices returns the initial choice list for a question of type t.
func DefaultChoices(t QuestionType) []string {
	if !t.HasChoices() {
		return nil
	}
	return []string{"Option 1", "Option 2", "Option 3"}
}

// Question is one form field.
type Question struct {
	ID       int          `json:"id"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Title    string       `json:"title"`
	Choices  []string     `json:"choices,omitempty"`
	Config   AnswerConfig `json:"config,omitempty"`
}

// Section is a named, ordered group of questions.
type Section struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	// Required is reserved: defined in the stored shape but not read or
	// enforced by any flow.
	Required  bool       `json:"required"`
	Questions []Question `json:"questions"`
}

// Document is the in-memory editable representation of one form. The id
// counters live on the aggregate so documents in the same process never
// cross-contaminate; ids are monotonic and never reused, even after deletes.
type Document struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Sections    []Section `json:"sections"`

	NextSectionID  int `json:"next_section_id"`
	NextQuestionID int `json:"next_question_id"`
}

// DefaultTitle is the display name substituted for untitled forms.
const DefaultTitle = "Formulaire sans titre"

// DefaultQuestionTitle is the prompt of a freshly added question.
const DefaultQuestionTitle = "Nouvelle question"

// NewDocument builds the initial document a builder session starts from:
// one section with one required short-text question.
func NewDocument() Document {
	return Document{
		Title: DefaultTitle,
		Sections: []Section{{
			ID:   1,
			Name: "Section 1",
			Questions: []Question{{
				ID:       1,
				Type:     ShortText,
				Required: true,
				Title:    DefaultQuestionTitle,
			}},
		}},
		NextSectionID:  2,
		NextQuestionID: 2,
	}
}

// Clone returns a deep copy of the document. Operations clone before
// mutating so callers holding the input never observe changes.
func (d Document) Clone() Document {
	out := d
	out.Sections = make([]Section, len(d.Sections))
	for i, s := range d.Sections {
		cs := s
		cs.Questions = make([]Question, len(s.Questions))
		for j, q := range s.Questions {
			cs.Questions[j] = q.clone()
		}
		out.Sections[i] = cs
	}
	return out
}

func (q Question) clone() Question {
	out := q
	out.Choices = append([]string(nil), q.Choices...)
	switch c := q.Config.(type) {
	case *DocumentConfig:
		cc := *c
		cc.Extensions = append([]string(nil), c.Extensions...)
		if c.File != nil {
			f := *c.File
			cc.File = &f
		}
		out.Config = &cc
	case *PhoneConfig:
		cc := *c
		out.Config = &cc
	case *NumberConfig:
		cc := *c
		if c.Min != nil {
			v := *c.Min
			cc.Min = &v
		}
		if c.Max != nil {
			v := *c.Max
			cc.Max = &v
		}
		out.Config = &cc
	case *DateConfig:
		cc := *c
		out.Config = &cc
	case *EmailConfig:
		cc := *c
		cc.Domains = append([]string(nil), c.Domains...)
		out.Config = &cc
	}
	return out
}

// QuestionCount returns the total number of questions across all sections.
func (d Document) QuestionCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Questions)
	}
	return n
}

// Publishable reports whether the document satisfies the submit-time
// invariant: a non-empty title and at least one section with a question.
func (d Document) Publishable() bool {
	if d.Title == "" {
		return false
	}
	if len(d.Sections) == 0 {
		return false
	}
	for _, s := range d.Sections {
		if len(s.Questions) > 0 {
			return true
		}
	}
	return false
}
