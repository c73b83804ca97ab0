package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"

	"hedge-machine/models"
	"hedge-machine/personas"
)

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// PromptForTickers asks for a comma-separated ticker list.
func PromptForTickers() ([]string, error) {
	var input string
	prompt := &survey.Input{
		Message: "Enter ticker symbols, comma separated (e.g. AAPL,MSFT):",
		Help:    "Every listed ticker is analyzed by the full persona chain.",
	}

	err := survey.AskOne(prompt, &input, survey.WithValidator(func(val interface{}) error {
		tickers, err := ParseTickers(val.(string))
		if err != nil {
			return err
		}
		if len(tickers) == 0 {
			return fmt.Errorf("at least one ticker is required")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return ParseTickers(input)
}

// ParseTickers splits and validates a comma-separated ticker list.
func ParseTickers(input string) ([]string, error) {
	seen := make(map[string]bool)
	var tickers []string
	for _, raw := range strings.Split(input, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}
		if len(ticker) > 10 || !tickerPattern.MatchString(ticker) {
			return nil, fmt.Errorf("invalid ticker %q", ticker)
		}
		if !seen[ticker] {
			seen[ticker] = true
			tickers = append(tickers, ticker)
		}
	}
	return tickers, nil
}

// PromptForEndDate asks for the analysis end date, defaulting to today.
func PromptForEndDate() (string, error) {
	var dateStr string
	prompt := &survey.Input{
		Message: "Enter the analysis end date (YYYY-MM-DD):",
		Default: time.Now().Format(models.DateLayout),
		Help:    "Fundamentals and news are fetched as of this date.",
	}

	err := survey.AskOne(prompt, &dateStr, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if _, err := time.Parse(models.DateLayout, str); err != nil {
			return fmt.Errorf("invalid date format, use YYYY-MM-DD")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(dateStr), nil
}

// PromptForPersonas asks which personas to run, defaulting to all of them.
func PromptForPersonas() ([]string, error) {
	keys := personas.Keys()
	options := make([]string, len(keys))
	for i, key := range keys {
		options[i] = key
	}

	var selected []string
	prompt := &survey.MultiSelect{
		Message: "Select analyst personas:",
		Options: options,
		Default: options,
		Help:    "Use space to toggle, enter to confirm. Chain order is fixed regardless of selection order.",
	}

	err := survey.AskOne(prompt, &selected, survey.WithValidator(func(val interface{}) error {
		answers, ok := val.([]survey.OptionAnswer)
		if !ok {
			return fmt.Errorf("invalid selection type")
		}
		if len(answers) == 0 {
			return fmt.Errorf("select at least one persona")
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}

	return selected, nil
}

// PromptForConfirmation summarizes the run and asks to proceed.
func PromptForConfirmation(tickers []string, startDate, endDate string, personaKeys []string) (bool, error) {
	fmt.Printf("\nRun configuration:\n")
	fmt.Printf("  Tickers:   %s\n", strings.Join(tickers, ", "))
	fmt.Printf("  Window:    %s to %s\n", startDate, endDate)
	fmt.Printf("  Personas:  %s\n\n", strings.Join(personaKeys, ", "))

	var confirmed bool
	prompt := &survey.Confirm{
		Message: "Proceed with this run?",
		Default: true,
	}
	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}
