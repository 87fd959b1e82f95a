package grains

// Sanitizer placeholders for identifying grains.
const (
	sanitizedFQDN   = "MINION.DOMAINNAME"
	sanitizedHost   = "MINION"
	sanitizedDomain = "DOMAINNAME"
)

// sanitizers maps grain names to replacement functions, applied when a
// caller asks for sanitized output.
var sanitizers = map[string]func(string) string{
	"serialnumber": sanitizeSerial,
	"domain":       func(string) string { return sanitizedDomain },
	"fqdn":         func(string) string { return sanitizedFQDN },
	"id":           func(string) string { return sanitizedFQDN },
	"host":         func(string) string { return sanitizedHost },
	"localhost":    func(string) string { return sanitizedHost },
	"nodename":     func(string) string { return sanitizedHost },
}

// sanitizeSerial replaces the last quarter of a serial number with X's.
func sanitizeSerial(serial string) string {
	keep := len(serial) * 3 / 4
	out := []byte(serial[:keep])
	for i := keep; i < len(serial); i++ {
		out = append(out, 'X')
	}
	return string(out)
}

func sanitizeInPlace(grains map[string]any) {
	for name, fn := range sanitizers {
		if value, ok := grains[name].(string); ok {
			grains[name] = fn(value)
		}
	}
}
