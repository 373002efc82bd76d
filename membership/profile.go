package membership

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	cardNumberMetaKey     = "access_card_number"
	githubUsernameMetaKey = "github_username"
)

// MetaData is one key/value entry on a commerce customer profile.
type MetaData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// Profile is the customer profile as reported by the commerce system.
type Profile struct {
	MetaData []MetaData `json:"meta_data"`
}

// Subscription is the subscription as reported by the commerce system.
type Subscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// profileSnapshot holds the profile fields the aggregate reads.
type profileSnapshot struct {
	cardNumbersRaw string
	githubUsername string
}

func (p Profile) snapshot() profileSnapshot {
	var snapshot profileSnapshot

	if value, ok := p.firstValue(cardNumberMetaKey); ok {
		snapshot.cardNumbersRaw = metaValueString(value)
	}

	if value, ok := p.firstValue(githubUsernameMetaKey); ok {
		snapshot.githubUsername = metaValueString(value)
	}

	return snapshot
}

func (p Profile) firstValue(key string) (interface{}, bool) {
	for _, metaData := range p.MetaData {
		if metaData.Key == key {
			return metaData.Value, true
		}
	}

	return nil, false
}

func metaValueString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// parseCardNumbers splits a comma delimited card list, dropping blanks and repeats.
func parseCardNumbers(raw string) []string {
	var cardNumbers []string
	seen := make(map[string]struct{})

	for _, piece := range strings.Split(raw, ",") {
		cardNumber := strings.TrimSpace(piece)
		if cardNumber == "" {
			continue
		}

		if _, ok := seen[cardNumber]; ok {
			continue
		}

		seen[cardNumber] = struct{}{}
		cardNumbers = append(cardNumbers, cardNumber)
	}

	return cardNumbers
}
