package tools

import (
	"context"
	"fmt"
	"strings"
)

type askUserArgs struct {
	Question string `json:"question" jsonschema_description:"Clarifying question for the user"`
}

// AskUserTool lets the model pause and ask the human a question.
type AskUserTool struct {
	asker Asker
}

func NewAskUserTool(asker Asker) *AskUserTool {
	return &AskUserTool{asker: asker}
}

func (a *AskUserTool) Name() string {
	return "ask_user"
}

func (a *AskUserTool) Description() string {
	return "Ask the user a clarifying question and wait for the answer. Use only when the request is ambiguous."
}

func (a *AskUserTool) Parameters() map[string]interface{} {
	return schemaOf(&askUserArgs{})
}

func (a *AskUserTool) Mutating() bool {
	return false
}

func (a *AskUserTool) SetAsker(asker Asker) {
	a.asker = asker
}

func (a *AskUserTool) Execute(ctx context.Context, call Call) (string, error) {
	var args askUserArgs
	if err := decodeArgs(call.Args, &args); err != nil {
		return "", err
	}
	if strings.TrimSpace(args.Question) == "" {
		return "", fmt.Errorf("question must not be empty")
	}
	if a.asker == nil {
		return "", fmt.Errorf("no user available to answer")
	}

	answer, err := a.asker.Ask(ctx, args.Question)
	if err != nil {
		return "", fmt.Errorf("user did not answer: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "(no answer)", nil
	}
	return answer, nil
}
