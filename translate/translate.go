// Package translate formats user visible messages in the user's language.
//
// The locale is detected once at startup; SetLanguage overrides it, for
// example from a command line flag or in tests that compare messages.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DEFAULT_LANGUAGE is used when no locale can be detected.
const DEFAULT_LANGUAGE = "en-US"

var (
	lock    sync.RWMutex
	printer *message.Printer
	current language.Tag
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("chip8: locale: %v", err)
	}

	SetLanguage(locales...)
}

// SetLanguage selects the first valid BCP 47 tag of the given tags.
// With no usable tags, DEFAULT_LANGUAGE is selected.
func SetLanguage(tags ...string) {
	tag := language.Make(DEFAULT_LANGUAGE)
	for _, str := range tags {
		parsed, err := language.Parse(str)
		if err == nil {
			tag = parsed
			break
		}
	}

	lock.Lock()
	defer lock.Unlock()

	current = tag
	printer = message.NewPrinter(tag)
}

// Language returns the currently selected language.
func Language() language.Tag {
	lock.RLock()
	defer lock.RUnlock()

	return current
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	lock.RLock()
	defer lock.RUnlock()

	return printer.Sprintf(key, args...)
}
