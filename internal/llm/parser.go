package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fixedassets/depflow/internal/common"
)

// parseClassification extracts the class and confidence from a provider
// response in the prompt's CLASS/CONFIDENCE/REASON format.
func parseClassification(content string) (ClassificationResponse, error) {
	content = cleanMarkdownWrapper(content)

	var resp ClassificationResponse
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "CLASS:"):
			resp.ClassName = strings.TrimSpace(strings.TrimPrefix(line, "CLASS:"))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			conf, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return ClassificationResponse{}, common.NewServiceError(common.CategoryOther,
					fmt.Errorf("unparseable confidence %q", raw))
			}
			resp.Confidence = conf
		case strings.HasPrefix(line, "REASON:"):
			resp.Reason = strings.TrimSpace(strings.TrimPrefix(line, "REASON:"))
		}
	}

	if resp.ClassName == "" {
		return ClassificationResponse{}, common.NewServiceError(common.CategoryOther,
			fmt.Errorf("no class found in response"))
	}
	if resp.Confidence <= 0 || resp.Confidence > 1 {
		resp.Confidence = 0.5
	}
	return resp, nil
}

// cleanMarkdownWrapper strips code fences some providers wrap around
// structured responses.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}
