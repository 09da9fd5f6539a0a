package transfer

type PreferencesRequest struct {
	Language string `json:"language" validate:"required,oneof=en es fr de pt hi"`
	Theme    string `json:"theme" validate:"required,oneof=light dark system"`
	Timezone string `json:"timezone" validate:"required,timezone"`
}
