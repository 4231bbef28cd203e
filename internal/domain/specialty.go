package domain

import "strings"

// UserSpecialty is the professional domain a user declared for the session
type UserSpecialty struct {
	Code     string   `json:"code" yaml:"code"`
	Label    string   `json:"label" yaml:"label"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// Matches reports whether a specialty tag on an item names this specialty.
// Corpus tags carry either the code or the label.
func (s *UserSpecialty) Matches(tag string) bool {
	if s == nil {
		return false
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false
	}
	return tag == strings.ToLower(s.Code) || (s.Label != "" && tag == strings.ToLower(s.Label))
}

// MatchesAny reports whether any of tags names this specialty.
func (s *UserSpecialty) MatchesAny(tags []string) bool {
	for _, tag := range tags {
		if s.Matches(tag) {
			return true
		}
	}
	return false
}

// SpecialtyCatalog is the closed set of specialties a user may select
type SpecialtyCatalog []UserSpecialty

// Lookup finds a specialty by code or label, case-insensitively.
func (c SpecialtyCatalog) Lookup(code string) (*UserSpecialty, error) {
	for i := range c {
		if c[i].Matches(code) {
			s := c[i]
			return &s, nil
		}
	}
	return nil, ErrUnknownSpecialty
}

// DefaultSpecialties is the catalog offered when none is configured.
var DefaultSpecialties = SpecialtyCatalog{
	{Code: "dermatology", Label: "피부과", Keywords: []string{"피부", "레이저", "미용", "리프팅", "dermatology", "laser"}},
	{Code: "plastic-surgery", Label: "성형외과", Keywords: []string{"성형", "수술실", "미용", "plastic surgery"}},
	{Code: "orthopedics", Label: "정형외과", Keywords: []string{"정형", "도수", "물리치료", "C-Arm", "체외충격파", "orthopedics"}},
	{Code: "pain", Label: "통증의학과", Keywords: []string{"통증", "신경차단", "C-Arm", "체외충격파", "ESWT", "pain"}},
	{Code: "internal-medicine", Label: "내과", Keywords: []string{"내과", "내시경", "초음파", "검진", "endoscopy"}},
	{Code: "dental", Label: "치과", Keywords: []string{"치과", "임플란트", "유니트체어", "구강", "dental"}},
	{Code: "ophthalmology", Label: "안과", Keywords: []string{"안과", "라식", "백내장", "ophthalmology"}},
	{Code: "ent", Label: "이비인후과", Keywords: []string{"이비인후", "청력", "비염", "ENT"}},
	{Code: "pediatrics", Label: "소아청소년과", Keywords: []string{"소아", "예방접종", "pediatrics"}},
	{Code: "korean-medicine", Label: "한의원", Keywords: []string{"한의", "침", "한약", "korean medicine"}},
}
