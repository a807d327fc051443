package mapvis

import (
	"regexp"
	"strings"
)

var (
	channelNumber = regexp.MustCompile(`CH?(\d+)`)
	bareNumber    = regexp.MustCompile(`^\d+$`)
)

// NormalizeModule upper-cases a module identifier and strips the optional
// PM prefix: "PMA6", "pma6" and "A6" all give "A6".
func NormalizeModule(identifier string) string {
	module := strings.ToUpper(strings.TrimSpace(identifier))
	if strings.HasPrefix(module, "PM") && len(module) > 2 {
		module = module[2:]
	}
	return module
}

// NormalizeChannel maps "ch1", "Ch01", "CH001", "C1" and "1" to "CH01".
// Names without a channel number are only upper-cased.
func NormalizeChannel(name string) string {
	channel := strings.ToUpper(strings.TrimSpace(name))

	var digits string
	if m := channelNumber.FindStringSubmatch(channel); m != nil {
		digits = m[1]
	} else if bareNumber.MatchString(channel) {
		digits = channel
	} else {
		return channel
	}

	digits = strings.TrimLeft(digits, "0")
	for len(digits) < 2 {
		digits = "0" + digits
	}
	return "CH" + digits
}

// NormalizeKey builds the MODULE:CHANNEL key shared by data and mappings.
func NormalizeKey(module string, channel string) string {
	return NormalizeModule(module) + ":" + NormalizeChannel(channel)
}
