package failure

import "strings"

// Category is a remediation bucket for user display. The classifier is best
// effort; categories are not exhaustive.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryDisk       Category = "disk"
	CategoryPermission Category = "permission"
	CategoryFormat     Category = "format"
	CategoryURL        Category = "url"
	CategoryUnknown    Category = "unknown"
)

type rule struct {
	category Category
	keywords []string
}

// Rules are evaluated in order; the first match wins.
var rules = []rule{
	{CategoryNetwork, []string{"connection", "network", "timeout", "timed out", "unreachable"}},
	{CategoryDisk, []string{"disk", "space", "no space", "full"}},
	{CategoryPermission, []string{"permission", "access denied", "denied"}},
	{CategoryFormat, []string{"format", "codec", "unsupported"}},
	{CategoryURL, []string{"url", "video", "not found", "private", "unavailable"}},
}

var remediation = map[Category][]string{
	CategoryNetwork: {
		"Check your internet connection",
		"Restart your router",
		"Check firewall settings",
		"Try using a VPN",
	},
	CategoryDisk: {
		"Free up disk space",
		"Remove unneeded files",
		"Choose another destination folder",
		"Empty the trash",
	},
	CategoryPermission: {
		"Run the application with sufficient privileges",
		"Check access rights to the destination folder",
		"Choose another destination folder",
		"Close other programs using the file",
	},
	CategoryFormat: {
		"Try another resolution",
		"Update yt-dlp",
		"Check that your system supports the format",
	},
	CategoryURL: {
		"Check that the URL is correct",
		"Make sure the video is not private",
		"Try another URL",
		"Check whether the video is available in your region",
	},
	CategoryUnknown: {
		"Restart the application",
		"Update yt-dlp",
		"Check the log for details",
		"Ask for help including the error text",
	},
}

// Classify maps a raw failure message to a remediation category
func Classify(msg string) Category {
	lower := strings.ToLower(msg)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.category
			}
		}
	}
	return CategoryUnknown
}

// ClassifyError classifies err, or returns "" for nil and cancellations
func ClassifyError(err error) Category {
	if err == nil || IsCancelled(err) {
		return ""
	}
	return Classify(err.Error())
}

// Remediation returns user advice for a category
func Remediation(c Category) []string {
	if lines, ok := remediation[c]; ok {
		return lines
	}
	return remediation[CategoryUnknown]
}
