package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported locales; the first one is the fallback.
var Supported = []string{"fr", "en"}

const Default = "fr"

var matcher = language.NewMatcher([]language.Tag{language.French, language.English})

// DetermineLocale resolves the locale from an explicit choice (query
// parameter or cookie), then Accept-Language, then def.
func DetermineLocale(explicit, acceptLang, def string) string {
	if l, ok := normalize(explicit); ok {
		return l
	}
	if acceptLang != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLang)
		if err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				return Supported[idx]
			}
		}
	}
	if l, ok := normalize(def); ok {
		return l
	}
	return Default
}

func normalize(lang string) (string, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "", false
	}
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	for _, s := range Supported {
		if s == lang {
			return s, true
		}
	}
	return "", false
}

var translations = map[string]map[string]string{
	"fr": {
		"app.name":             "Bien-être",
		"form.create":          "Créer",
		"form.update":          "Mettre à jour",
		"form.cancel":          "Annuler",
		"form.title":           "Titre",
		"form.description":     "Description",
		"form.content":         "Contenu",
		"form.category":        "Catégorie",
		"form.category.choose": "Choisir une catégorie",
		"form.duration":        "Durée (minutes)",
		"form.active":          "Actif",
		"nav.resources":        "Ressources",
		"nav.users":            "Utilisateurs",
		"nav.pages":            "Pages",
		"nav.logout":           "Déconnexion",
		"resources.title":      "Ressources",
		"resources.subtitle":   "Gérez la bibliothèque d'articles et d'activités",
		"resources.add":        "Ajouter une ressource",
		"resources.new":        "Nouvelle ressource",
		"resources.edit":       "Modifier la ressource",
		"resources.empty":      "Aucune ressource",
		"resources.delete":     "Supprimer",
		"users.title":          "Utilisateurs",
		"users.search":         "Rechercher un utilisateur",
		"users.admin":          "Administrateur",
		"users.lastLogin":      "Dernière connexion",
		"users.never":          "Jamais",
		"users.promote":        "Rendre administrateur",
		"users.demote":         "Retirer les droits",
		"login.title":          "Connexion",
		"login.email":          "Adresse e-mail",
		"login.password":       "Mot de passe",
		"login.submit":         "Se connecter",
		"login.forbidden":      "Accès réservé aux administrateurs",
	},
	"en": {
		"app.name":             "Well-being",
		"form.create":          "Create",
		"form.update":          "Update",
		"form.cancel":          "Cancel",
		"form.title":           "Title",
		"form.description":     "Description",
		"form.content":         "Content",
		"form.category":        "Category",
		"form.category.choose": "Choose a category",
		"form.duration":        "Duration (minutes)",
		"form.active":          "Active",
		"nav.resources":        "Resources",
		"nav.users":            "Users",
		"nav.pages":            "Pages",
		"nav.logout":           "Log out",
		"resources.title":      "Resources",
		"resources.subtitle":   "Manage the library of articles and activities",
		"resources.add":        "Add resource",
		"resources.new":        "New resource",
		"resources.edit":       "Edit resource",
		"resources.empty":      "No resources",
		"resources.delete":     "Delete",
		"users.title":          "Users",
		"users.search":         "Search users",
		"users.admin":          "Admin",
		"users.lastLogin":      "Last login",
		"users.never":          "Never",
		"users.promote":        "Make admin",
		"users.demote":         "Remove admin",
		"login.title":          "Sign in",
		"login.email":          "Email",
		"login.password":       "Password",
		"login.submit":         "Sign in",
		"login.forbidden":      "Administrators only",
	},
}

// T returns the translation of key in locale, falling back to the default
// locale and then to the key itself.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations[Default][key]; ok {
		return v
	}
	return key
}
