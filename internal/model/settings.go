package model

// Language is a UI language code.
type Language string

// Supported languages.
const (
	LangEnglish Language = "en"
	LangFrench  Language = "fr"
	LangArabic  Language = "ar"
)

// Languages lists every supported language.
var Languages = []Language{LangEnglish, LangFrench, LangArabic}

// Valid reports whether l is supported.
func (l Language) Valid() bool {
	for _, k := range Languages {
		if l == k {
			return true
		}
	}
	return false
}

// ThemeMode selects the colour scheme.
type ThemeMode string

// Theme modes.
const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

// Valid reports whether t is a known mode.
func (t ThemeMode) Valid() bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}

// Settings are the process-wide user preferences.
type Settings struct {
	Language           Language  `json:"language"`
	Currency           Currency  `json:"currency"`
	Theme              ThemeMode `json:"theme"`
	PushNotifications  bool      `json:"push_notifications"`
	EmailNotifications bool      `json:"email_notifications"`
	IsPro              bool      `json:"is_pro"`
}

// DefaultSettings returns first-run preferences.
func DefaultSettings() Settings {
	return Settings{
		Language:           LangEnglish,
		Currency:           USD,
		Theme:              ThemeSystem,
		PushNotifications:  true,
		EmailNotifications: true,
	}
}

// SettingsPatch is a partial settings update; nil fields are left untouched.
type SettingsPatch struct {
	Language           *Language  `json:"language,omitempty"`
	Currency           *Currency  `json:"currency,omitempty"`
	Theme              *ThemeMode `json:"theme,omitempty"`
	PushNotifications  *bool      `json:"push_notifications,omitempty"`
	EmailNotifications *bool      `json:"email_notifications,omitempty"`
	IsPro              *bool      `json:"is_pro,omitempty"`
}
