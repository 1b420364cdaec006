package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"unfollowcleaner/internal/core/domain"
	"unfollowcleaner/internal/core/ports"
)

const affirmative = "yes"

// fidsPerLine keeps the listing readable for long lists.
const fidsPerLine = 20

// Confirm shows the flagged FIDs to the operator and blocks until they answer
// or ctx is done. Only "yes", in any letter case, confirms.
func Confirm(ctx context.Context, console ports.Console, fids []domain.FID) bool {
	console.Warn("The following %d accounts will be unfollowed:", len(fids))
	for _, line := range FormatFIDs(fids, fidsPerLine) {
		console.Info("%s", line)
	}
	console.Warn("Total: %d accounts", len(fids))

	answer, err := console.Prompt(ctx, fmt.Sprintf("Unfollow these %d accounts? Type 'yes' to continue:", len(fids)))
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		console.Error("Could not read confirmation: %v", err)
		return false
	}
	return IsAffirmative(answer)
}

// IsAffirmative reports whether answer is exactly the confirmation token,
// ignoring letter case. The caller strips the line terminator.
func IsAffirmative(answer string) bool {
	return strings.EqualFold(answer, affirmative)
}

// FormatFIDs renders fids as comma-separated lines of at most perLine entries.
func FormatFIDs(fids []domain.FID, perLine int) []string {
	if perLine <= 0 {
		perLine = len(fids)
	}

	var lines []string
	for start := 0; start < len(fids); start += perLine {
		end := min(start+perLine, len(fids))
		parts := make([]string, 0, end-start)
		for _, fid := range fids[start:end] {
			parts = append(parts, strconv.FormatUint(uint64(fid), 10))
		}
		lines = append(lines, strings.Join(parts, ", "))
	}
	return lines
}
