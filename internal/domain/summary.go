package domain

// SummaryRequest is the text handed to the summarization collaborator.
type SummaryRequest struct {
	Title       string
	SourceName  string
	URL         string
	PublishedAt string
	Body        string
}

// Summary is what the summarization collaborator returns.
type Summary struct {
	Text     string
	Glossary []GlossaryEntry
}
