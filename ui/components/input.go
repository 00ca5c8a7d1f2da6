package components

import (
	"github.com/vigneshmj1997/CodingAgent/internal/approval"
	"github.com/vigneshmj1997/CodingAgent/ui/styles"
)

// RenderInput draws the text field, framed as a question while an approval
// is pending.
func RenderInput(inputView string, pending *approval.Request, width int) string {
	if pending == nil {
		return styles.InputStyle(width).Render(inputView)
	}

	prompt := pending.Description
	if pending.Kind == approval.KindConfirm {
		prompt += "? [y/N]"
	}
	body := prompt + "\n" + inputView
	if pending.Preview != "" {
		body = styles.DiffStyle().Render(pending.Preview) + "\n\n" + body
	}
	return styles.ApprovalStyle(width).Render(body)
}
