package service

import (
	"strings"

	"github.com/jjenkins/billpulse/internal/model"
)

// statusRule maps action text to a bill status. A rule matches when the
// lowercased text contains every entry of all and, if any is set, at least
// one entry of any.
type statusRule struct {
	all    []string
	any    []string
	status model.BillStatus
}

func (r statusRule) matches(text string) bool {
	for _, needle := range r.all {
		if !strings.Contains(text, needle) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, needle := range r.any {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// Evaluated top to bottom, first match wins.
var statusRules = []statusRule{
	{any: []string{"became law", "signed by president"}, status: model.StatusBecameLaw},
	{all: []string{"passed senate", "passed house"}, status: model.StatusPassedBoth},
	{all: []string{"passed senate"}, status: model.StatusPassedSenate},
	{all: []string{"passed house"}, status: model.StatusPassedHouse},
	{all: []string{"reported by committee"}, status: model.StatusReportedByCommittee},
	{any: []string{"referred to", "committee"}, status: model.StatusReferredToCommittee},
	{all: []string{"vetoed"}, status: model.StatusVetoed},
	{all: []string{"failed"}, status: model.StatusFailed},
}

// ClassifyStatus derives a bill's status from the text of its latest action.
// Text that matches no rule means the bill has only been introduced.
func ClassifyStatus(latestActionText string) model.BillStatus {
	text := strings.ToLower(latestActionText)
	for _, rule := range statusRules {
		if rule.matches(text) {
			return rule.status
		}
	}
	return model.StatusIntroduced
}

type eventRule struct {
	any       []string
	eventType model.EventType
}

var eventRules = []eventRule{
	{any: []string{"introduced"}, eventType: model.EventIntroduced},
	{any: []string{"referred to"}, eventType: model.EventReferredToCommittee},
	{any: []string{"reported"}, eventType: model.EventReportedByCommittee},
	{any: []string{"passed", "agreed to"}, eventType: model.EventPassedChamber},
	{any: []string{"vote"}, eventType: model.EventVote},
	{any: []string{"amended"}, eventType: model.EventAmended},
	{any: []string{"signed by president"}, eventType: model.EventSignedByPresident},
	{any: []string{"became law"}, eventType: model.EventBecameLaw},
	{any: []string{"vetoed"}, eventType: model.EventVetoed},
}

// ClassifyEventType tags a single action. Unrecognized text is tagged
// model.EventOther.
func ClassifyEventType(actionText string) model.EventType {
	text := strings.ToLower(actionText)
	for _, rule := range eventRules {
		for _, needle := range rule.any {
			if strings.Contains(text, needle) {
				return rule.eventType
			}
		}
	}
	return model.EventOther
}
