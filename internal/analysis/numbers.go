package analysis

import (
	"regexp"
	"strconv"
)

var integerPattern = regexp.MustCompile(`-?\d+`)

// ExtractNumbers returns every integer in text in reading order.
// A minus sign counts only when it is not glued to a preceding digit or letter.
// Runs of digits too large for an int are skipped.
func ExtractNumbers(text string) []int {
	numbers := make([]int, 0)
	for _, loc := range integerPattern.FindAllStringIndex(text, -1) {
		start := loc[0]
		if text[start] == '-' && start > 0 && isWordByte(text[start-1]) {
			// "10-20" is a range, not ten and minus twenty
			start++
		}
		n, err := strconv.Atoi(text[start:loc[1]])
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers
}

// Sum adds numbers
func Sum(numbers []int) int {
	total := 0
	for _, n := range numbers {
		total += n
	}
	return total
}

func isWordByte(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
