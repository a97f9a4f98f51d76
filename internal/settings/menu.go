package settings

import "github.com/AnyUserName/saveimg/internal/conversion"

// MenuTitles returns the save and copy action titles for format.
func MenuTitles(format conversion.Format) (save, copy string) {
	label := conversion.ParseFormat(string(format)).Label()
	return "Save image (" + label + ")", "Copy image (" + label + ")"
}
