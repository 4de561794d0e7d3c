package taxonomy

import (
	"fmt"
	"strings"
)

// NoHistory stands in for an empty conversation history.
const NoHistory = "[No prior conversation]"

// Instructions returns the static part of the prompt: task, rules, taxonomy,
// output format and examples.
func (t *Taxonomy) Instructions() string {
	return t.instructions
}

// BuildPrompt constructs the full classification prompt for one message.
func (t *Taxonomy) BuildPrompt(history, message string) string {
	if strings.TrimSpace(history) == "" {
		history = NoHistory
	}

	var sb strings.Builder
	sb.WriteString(t.instructions)
	sb.WriteString("\n\n**CONVERSATION HISTORY:**\n")
	sb.WriteString(history)
	sb.WriteString("\n\n**CURRENT CUSTOMER MESSAGE:**\n")
	sb.WriteString(message)
	sb.WriteString("\n\nClassify this message and return JSON only.")
	return sb.String()
}

func (t *Taxonomy) renderInstructions() string {
	var sb strings.Builder

	company := strings.TrimSpace(t.Company)
	if company == "" {
		company = "a customer support team"
	}
	fmt.Fprintf(&sb, "You are an expert intent classification system for %s.\n\n", company)
	sb.WriteString("**YOUR TASK:** Classify customer messages into PRIMARY and SECONDARY intent categories based on the COMPLETE conversation history, not just the latest message.\n\n")

	if len(t.Rules) > 0 {
		sb.WriteString("**CRITICAL RULES:**\n")
		for i, r := range t.Rules {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("**INTENT TAXONOMY:**\n\n")
	for _, c := range t.Categories {
		fmt.Fprintf(&sb, "PRIMARY: %s\n", c.Name)
		for i, in := range c.Intents {
			branch := "├─"
			if i == len(c.Intents)-1 {
				branch = "└─"
			}
			if in.Description != "" {
				fmt.Fprintf(&sb, "%s %s: %s\n", branch, in.Name, in.Description)
			} else {
				fmt.Fprintf(&sb, "%s %s\n", branch, in.Name)
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`**OUTPUT FORMAT:**
Return ONLY valid JSON in this exact format:
{
  "primary": "<primary_category>",
  "secondary": "<secondary_category>",
  "reasoning": "<brief explanation of why this classification>"
}
`)

	if len(t.Examples) > 0 {
		sb.WriteString("\n**EXAMPLES:**\n")
		for _, ex := range t.Examples {
			fmt.Fprintf(&sb, "\nMessage: %q\n", ex.Message)
			fmt.Fprintf(&sb, "Correct: {\"primary\": %q, \"secondary\": %q, \"reasoning\": %q}\n", ex.Primary, ex.Secondary, ex.Reasoning)
			if ex.Wrong != nil {
				fmt.Fprintf(&sb, "Wrong: {\"primary\": %q, \"secondary\": %q}\n", ex.Wrong.Primary, ex.Wrong.Secondary)
			}
		}
	}

	sb.WriteString("\nNow classify the following message based on the conversation history provided.")
	return sb.String()
}
