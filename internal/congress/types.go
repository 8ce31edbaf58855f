package congress

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// flexString decodes a JSON string or number into its text form. The API is
// inconsistent about quoting codes and district numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

// BillListItem is one entry in a bill list page.
type BillListItem struct {
	Congress       int        `json:"congress"`
	Type           string     `json:"type"`
	Number         flexString `json:"number"`
	Title          string     `json:"title"`
	IntroducedDate string     `json:"introducedDate"`
	URL            string     `json:"url"`
}

// BillList is one page of the bill list with the total across all pages.
type BillList struct {
	Bills []BillListItem
	Count int
}

type billListResponse struct {
	Bills      []BillListItem `json:"bills"`
	Pagination struct {
		Count int `json:"count"`
	} `json:"pagination"`
}

// Title is one entry of a bill's titles list.
type Title struct {
	TitleType string `json:"titleType"`
	Title     string `json:"title"`
}

// LatestAction is the most recent action recorded on a bill.
type LatestAction struct {
	ActionDate string `json:"actionDate"`
	Text       string `json:"text"`
}

// Member is a sponsor or cosponsor.
type Member struct {
	BioguideID      string     `json:"bioguideId"`
	FullName        string     `json:"fullName"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Party           string     `json:"party"`
	State           string     `json:"state"`
	District        flexString `json:"district"`
	SponsorshipDate string     `json:"sponsorshipDate"`
}

// Name returns the member's full name, falling back to first and last name.
func (m Member) Name() string {
	if m.FullName != "" {
		return m.FullName
	}
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	default:
		return m.LastName
	}
}

// DistrictCode returns the member's district as text, empty when unknown.
func (m Member) DistrictCode() string {
	return string(m.District)
}

// BillDetail is the detail record for one bill.
type BillDetail struct {
	Title                                string        `json:"title"`
	Titles                               []Title       `json:"titles"`
	IntroducedDate                       string        `json:"introducedDate"`
	LatestAction                         *LatestAction `json:"latestAction"`
	URL                                  string        `json:"url"`
	ConstitutionalAuthorityStatementText string        `json:"constitutionalAuthorityStatementText"`
	Sponsors                             []Member      `json:"sponsors"`
}

type billDetailResponse struct {
	Bill *BillDetail `json:"bill"`
}

// Action is one entry of a bill's action history.
type Action struct {
	ActionDate   string `json:"actionDate"`
	Text         string `json:"text"`
	SourceSystem *struct {
		Code flexString `json:"code"`
		Name string     `json:"name"`
	} `json:"sourceSystem"`
}

type actionsResponse struct {
	Actions []Action `json:"actions"`
}

// Summary is one CRS summary of a bill.
type Summary struct {
	ActionDate string `json:"actionDate"`
	Text       string `json:"text"`
	UpdateDate string `json:"updateDate"`
}

type summariesResponse struct {
	Summaries []Summary `json:"summaries"`
}

type cosponsorsResponse struct {
	Cosponsors []Member `json:"cosponsors"`
}

// TextVersion is one published text of a bill.
type TextVersion struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Date    string `json:"date"`
	Formats []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"formats"`
}

type textResponse struct {
	TextVersions []TextVersion `json:"textVersions"`
}

// Committee is a committee a bill was referred to.
type Committee struct {
	Name    string `json:"name"`
	Chamber string `json:"chamber"`
	Type    string `json:"type"`
}

type committeesResponse struct {
	Committees []Committee `json:"committees"`
}

// Subjects holds a bill's policy area and legislative subjects.
type Subjects struct {
	PolicyArea *struct {
		Name string `json:"name"`
	} `json:"policyArea"`
	LegislativeSubjects []struct {
		Name string `json:"name"`
	} `json:"legislativeSubjects"`
}

// PolicyAreaName returns the policy area, empty if none is assigned.
func (s *Subjects) PolicyAreaName() string {
	if s == nil || s.PolicyArea == nil {
		return ""
	}
	return s.PolicyArea.Name
}

// Names returns the legislative subject names, nil when there are none.
func (s *Subjects) Names() []string {
	if s == nil {
		return nil
	}
	var names []string
	for _, subject := range s.LegislativeSubjects {
		if subject.Name != "" {
			names = append(names, subject.Name)
		}
	}
	return names
}

type subjectsResponse struct {
	Subjects *Subjects `json:"subjects"`
}

// BillNumber parses the list entry's bill number.
func (b BillListItem) BillNumber() (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(b.Number)))
}

// Chamber derives the chamber that recorded the action from its source
// system code: "1" is the House, anything else the Senate.
func (a Action) Chamber() string {
	if a.SourceSystem == nil || a.SourceSystem.Code == "" {
		return ""
	}
	if a.SourceSystem.Code == "1" {
		return "house"
	}
	return "senate"
}
