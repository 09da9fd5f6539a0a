package transfer

type GenerateTextRequest struct {
	Prompt   string `json:"prompt" validate:"required,max=2000"`
	Platform string `json:"platform" validate:"required"`
}

type GenerateImageRequest struct {
	Prompt string `json:"prompt" validate:"required,max=1000"`
	Style  string `json:"style"`
	Size   string `json:"size"`
}
