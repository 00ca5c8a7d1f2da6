package components

import (
	"github.com/vigneshmj1997/CodingAgent/ui/styles"
)

func RenderStatus(status string, processing bool, spinnerView string, width int) string {
	statusContent := status
	if processing {
		statusContent = spinnerView + " " + status + "  (Esc to cancel)"
	}
	return styles.StatusStyle(width).Render(statusContent)
}
