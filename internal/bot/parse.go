package bot

import (
	"fmt"
	"strconv"
	"strings"

	"jobbot/internal/model"
)

const maxKeywordLength = 64

// ParseKeywordArg validates and normalizes a keyword argument.
func ParseKeywordArg(args string) (string, error) {
	text := strings.ToLower(strings.TrimSpace(args))
	if text == "" {
		return "", fmt.Errorf("usage: /addkeyword <word or phrase>")
	}
	if len(text) > maxKeywordLength {
		return "", fmt.Errorf("keyword is too long (max %d characters)", maxKeywordLength)
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// ParseTimeArg validates an HH:MM digest time argument.
func ParseTimeArg(args string) (string, error) {
	s := strings.TrimSpace(args)
	hour, minute, err := model.ParseNotificationTime(s)
	if err != nil {
		return "", fmt.Errorf("invalid time format, use HH:MM with 30-minute slots (e.g. 09:00 or 09:30)")
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// ParseSalaryArg validates a non-negative salary argument.
func ParseSalaryArg(args string) (float64, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), "$"))
	salary, err := strconv.ParseFloat(s, 64)
	if err != nil || salary < 0 {
		return 0, fmt.Errorf("invalid salary %q, use a non-negative number", args)
	}
	return salary, nil
}
