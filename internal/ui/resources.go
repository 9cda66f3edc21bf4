package ui

import (
	"fyne.io/fyne/v2"
)

// AppIcon is looked up next to the executable's working directory
const AppIcon = "ytgrab.png"

// LoadAppIcon loads the window icon, if one ships with the binary
func LoadAppIcon() (fyne.Resource, error) {
	return fyne.LoadResourceFromPath(AppIcon)
}
