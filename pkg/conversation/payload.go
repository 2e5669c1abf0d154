package conversation

type PayloadType string

const (
	PayloadTypePresentation    PayloadType = "presentation"
	PayloadTypeQuotation       PayloadType = "quotation"
	PayloadTypeBriefing        PayloadType = "briefing"
	PayloadTypeExecutiveReview PayloadType = "executive-review"
	PayloadTypeImage           PayloadType = "image"
	PayloadTypeBilingualPrompt PayloadType = "bilingual-prompt"
)

// Payload is the structured half of a model message: a typed document the
// presentation layer renders with a dedicated viewer instead of prose.
// A message carries at most one payload.
type Payload interface {
	PayloadType() PayloadType
}

// Slide is one page of a generated presentation. Data is intentionally
// loose: slide types (title, investment, deadlines, ...) each carry their
// own shape and the core never looks inside.
type Slide struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Presentation struct {
	Slides []Slide `json:"slides"`
}

func (p *Presentation) PayloadType() PayloadType {
	return PayloadTypePresentation
}

type QuotationItem struct {
	ImageURL   string `json:"imageUrl"`
	Name       string `json:"name"`
	Model      string `json:"model"`
	Size       string `json:"size"`
	Brand      string `json:"brand"`
	BrandURL   string `json:"brandUrl"`
	Quantity   string `json:"quantity"`
	UnitPrice  string `json:"unitPrice"`
	TotalPrice string `json:"totalPrice"`
}

type Quotation struct {
	Items []QuotationItem `json:"items"`
}

func (q *Quotation) PayloadType() PayloadType {
	return PayloadTypeQuotation
}

type BriefingSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type Briefing struct {
	Title    string            `json:"title"`
	Sections []BriefingSection `json:"sections"`
}

func (b *Briefing) PayloadType() PayloadType {
	return PayloadTypeBriefing
}

type ReviewItem struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Details     string `json:"details"`
}

type ReviewSection struct {
	Title string       `json:"title"`
	Items []ReviewItem `json:"items"`
}

type ReviewSummary struct {
	Status     string   `json:"status"`
	Approved   int      `json:"approved"`
	Pending    int      `json:"pending"`
	Error      int      `json:"error"`
	TopRisks   []string `json:"topRisks"`
	ActionPlan string   `json:"actionPlan"`
}

// ExecutiveReview is the checklist produced from an executive project
// audit. File and Date are stamped by the classifier, not the model.
type ExecutiveReview struct {
	Project  string          `json:"project"`
	File     string          `json:"file"`
	Date     string          `json:"date"`
	Summary  ReviewSummary   `json:"summary"`
	Sections []ReviewSection `json:"sections"`
}

func (e *ExecutiveReview) PayloadType() PayloadType {
	return PayloadTypeExecutiveReview
}

// Image carries a rendered result as a data URL.
type Image struct {
	URL string `json:"url"`
}

func (i *Image) PayloadType() PayloadType {
	return PayloadTypeImage
}

// BilingualPrompt is a ready-to-paste video prompt pair, Portuguese for
// the user and English for the generation tool.
type BilingualPrompt struct {
	PT string `json:"pt"`
	EN string `json:"en"`
}

func (b *BilingualPrompt) PayloadType() PayloadType {
	return PayloadTypeBilingualPrompt
}

// newPayload returns an empty payload of the given type, for decoding.
func newPayload(t PayloadType) (Payload, bool) {
	switch t {
	case PayloadTypePresentation:
		return &Presentation{}, true
	case PayloadTypeQuotation:
		return &Quotation{}, true
	case PayloadTypeBriefing:
		return &Briefing{}, true
	case PayloadTypeExecutiveReview:
		return &ExecutiveReview{}, true
	case PayloadTypeImage:
		return &Image{}, true
	case PayloadTypeBilingualPrompt:
		return &BilingualPrompt{}, true
	}
	return nil, false
}

var (
	_ Payload = (*Presentation)(nil)
	_ Payload = (*Quotation)(nil)
	_ Payload = (*Briefing)(nil)
	_ Payload = (*ExecutiveReview)(nil)
	_ Payload = (*Image)(nil)
	_ Payload = (*BilingualPrompt)(nil)
)
