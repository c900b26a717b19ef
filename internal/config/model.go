package config

import "strings"

// Model identifies a completion model
type Model string

// Models offered by the front-end
const (
	ModelGPT4oMini          Model = "gpt-4o-mini"
	ModelGPT4o              Model = "gpt-4o"
	ModelGPT4Turbo          Model = "gpt-4-turbo"
	ModelGPT35Turbo         Model = "gpt-3.5-turbo"
	ModelGPT35TurboInstruct Model = "gpt-3.5-turbo-instruct"
	ModelGemini20Flash      Model = "gemini-2.0-flash"
	ModelGemini15Pro        Model = "gemini-1.5-pro"
)

// SupportedModels lists the models offered by the front-end, default first
var SupportedModels = []Model{
	ModelGPT4oMini,
	ModelGPT4o,
	ModelGPT4Turbo,
	ModelGPT35Turbo,
	ModelGPT35TurboInstruct,
	ModelGemini20Flash,
	ModelGemini15Pro,
}

// Family groups models by the API they are served from
type Family int

const (
	FamilyChat Family = iota
	FamilyCompletion
	FamilyGemini
)

func (f Family) String() string {
	switch f {
	case FamilyChat:
		return "chat"
	case FamilyCompletion:
		return "completion"
	case FamilyGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// Supported reports whether m is one of SupportedModels
func (m Model) Supported() bool {
	for _, s := range SupportedModels {
		if s == m {
			return true
		}
	}
	return false
}

// Family returns the API family serving m. Unknown models are treated as chat models.
func (m Model) Family() Family {
	id := strings.ToLower(string(m))
	switch {
	case strings.HasPrefix(id, "gemini-"):
		return FamilyGemini
	case strings.HasSuffix(id, "-instruct"), id == "davinci-002", id == "babbage-002":
		return FamilyCompletion
	default:
		return FamilyChat
	}
}
