package firefly

import (
	"errors"
	"fmt"
	"strings"
)

const UsageMessage = "Please provide a prompt for image generation. Usage: /firefly your prompt here"

// materialize renders the image references into chat content, one markdown
// image per reference, preserving provider order.
func materialize(refs []string) string {
	var sb strings.Builder
	for _, ref := range refs {
		sb.WriteString(fmt.Sprintf("![image](%s)\n", ref))
	}
	return sb.String()
}

// materializeError converts any fault of the invocation into a single
// human-readable message. Provider detail is included where it exists;
// credentials and tokens never appear here.
func materializeError(err error) string {
	detail := faultDetail(err)

	switch {
	case errors.Is(err, ErrConfig):
		return fmt.Sprintf("Invalid image generation settings: %s", detail)

	case errors.Is(err, ErrAuth):
		return "Image generation failed: the Adobe Firefly API rejected the configured credentials. " +
			"Please check that the client ID and secret are valid and have the required permissions."

	case errors.Is(err, ErrModeration):
		return fmt.Sprintf("Your prompt was rejected by content moderation: %s", detail)

	case errors.Is(err, ErrGeneration):
		return fmt.Sprintf("Image generation failed: %s", detail)

	case errors.Is(err, ErrTimeout):
		return "Image generation took too long and was abandoned. The job may still finish on the provider side; please try again."

	case errors.Is(err, ErrSubmission), errors.Is(err, ErrPoll):
		return fmt.Sprintf("Image generation failed: %s", detail)

	default:
		return "Image generation failed due to an unexpected error. Please try again later."
	}
}
