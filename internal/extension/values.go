package extension

// Options page contract of the extension under test.
const (
	APIKeySelector     = "#apiKey"
	BatchSizeSelector  = "#batchSize"
	BatchDelaySelector = "#batchDelay"
	PromptSelector     = "#prompt"
	SaveSelector       = "#save"
	StatusSelector     = "#status"
)

// Settings are the optional options-page fields besides the credential.
// Empty fields are left as the page shows them.
type Settings struct {
	BatchSize  string `yaml:"batchSize,omitempty"`
	BatchDelay string `yaml:"batchDelay,omitempty"`
	Prompt     string `yaml:"prompt,omitempty"`
}

// CredentialValues returns the values that store apiKey, plus any non-empty
// extra settings, and wait for the page's save confirmation.
func CredentialValues(apiKey string, extra Settings) Values {
	v := Values{
		Page:    DefaultOptionsPage,
		Fields:  []Field{{Selector: APIKeySelector, Value: apiKey, Secret: true}},
		Commit:  SaveSelector,
		Confirm: &Confirmation{Selector: StatusSelector, Contains: "saved"},
	}
	for _, f := range []Field{
		{Selector: BatchSizeSelector, Value: extra.BatchSize},
		{Selector: BatchDelaySelector, Value: extra.BatchDelay},
		{Selector: PromptSelector, Value: extra.Prompt},
	} {
		if f.Value != "" {
			v.Fields = append(v.Fields, f)
		}
	}
	return v
}
