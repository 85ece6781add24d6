package gpt

import "golang.org/x/text/language"

type messageKey string

const (
	msgGranted         messageKey = "granted"
	msgDenied          messageKey = "denied"
	msgUserNotFound    messageKey = "user_not_found"
	msgProductNotFound messageKey = "product_not_found"
	msgMissingIdentity messageKey = "missing_identity"
	msgMissingTool     messageKey = "missing_tool"
	msgInternal        messageKey = "internal"
)

// Spanish first: it is the storefront's language and the fallback for
// anything the matcher cannot place.
var supported = []language.Tag{language.Spanish, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[messageKey]string{
	language.Spanish: {
		msgGranted:         "Acceso verificado",
		msgDenied:          "No tienes acceso a esta herramienta. Cómprala desde tu panel.",
		msgUserNotFound:    "Usuario no encontrado",
		msgProductNotFound: "Herramienta no encontrada",
		msgMissingIdentity: "Se requiere userId o email",
		msgMissingTool:     "Se requiere gptName",
		msgInternal:        "Error interno, inténtalo de nuevo",
	},
	language.English: {
		msgGranted:         "Access verified",
		msgDenied:          "You do not have access to this tool. Purchase it from your dashboard.",
		msgUserNotFound:    "User not found",
		msgProductNotFound: "Tool not found",
		msgMissingIdentity: "userId or email is required",
		msgMissingTool:     "gptName is required",
		msgInternal:        "Internal error, please try again",
	},
}

// negotiate picks the message language from an Accept-Language header.
func negotiate(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.Spanish
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.Spanish
	}
	return supported[idx]
}

func localize(tag language.Tag, key messageKey) string {
	if m, ok := messages[tag]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return messages[language.Spanish][key]
}
