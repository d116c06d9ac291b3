// Package jsonutil reads loosely typed fields from LLM JSON responses.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func isEmpty(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if isEmpty(raw) {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleFloatValue reads a number that may arrive as a JSON number or as a
// string such as "85" or "85%". ok is false when no number can be read.
func FlexibleFloatValue(raw json.RawMessage) (float64, bool) {
	if isEmpty(raw) {
		return 0, false
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal, true
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err != nil {
		return 0, false
	}
	strVal = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(strVal), "%"))
	f, err := strconv.ParseFloat(strVal, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FlexibleBoolValue reads a boolean that may arrive as true/false, "yes"/"no",
// "valid"/"invalid" or 1/0. Unknown values read as false.
func FlexibleBoolValue(raw json.RawMessage) bool {
	if isEmpty(raw) {
		return false
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return boolVal
	}

	switch strings.ToLower(strings.TrimSpace(FlexibleStringValue(raw))) {
	case "true", "yes", "y", "valid", "1":
		return true
	default:
		return false
	}
}
