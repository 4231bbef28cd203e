package corpus

import "strings"

// fieldNames maps the first segment of a knowledge-base category path to the
// domain area shown to users.
var fieldNames = map[string]string{
	"partners":        "파트너사",
	"hospital-basics": "개원 시 필요 영역 [기본편]",
	"advanced":        "심화 콘텐츠",
	"checklist":       "체크리스트",
	"uncategorized":   "기타",
}

// topicNames maps the last segment of a category path to its topic label.
var topicNames = map[string]string{
	"pre-construction":        "착공 이전",
	"post-construction":       "착공 이후",
	"during-construction":     "시공 중",
	"post-opening":            "개설신고 이후",
	"post-registration":       "개설신고 이후",
	"interior":                "인테리어",
	"signage":                 "간판",
	"furniture":               "가구",
	"bank":                    "은행",
	"homepage":                "홈페이지",
	"pc-network":              "PC&네트워크",
	"late-process":            "중후반 프로세스",
	"emr-crm":                 "EMR/CRM",
	"marketing":               "마케팅",
	"admin-checklist":         "행정업무 체크리스트",
	"fire-checklist":          "소방점검",
	"real-estate":             "부동산",
	"tax":                     "세무",
	"loan":                    "대출",
	"tax-loan":                "세무/대출",
	"medical-device":          "의료기기",
	"demolition":              "철거 및 운영 필수 설비",
	"infrastructure":          "운영 지원 인프라",
	"textiles":                "병원용 섬유류",
	"waste":                   "의료폐기물",
	"admin":                   "행정 업무",
	"insurance":               "보험",
	"pharmacy":                "원내 의약품",
	"management":              "관리 관련 업체",
	"medical-device-beauty":   "의료기기 미용편",
	"medical-device-pain":     "의료기기 통증편",
	"medical-device-internal": "의료기기 내과편",
	"medical-device-dental":   "의료기기 치과편",
	"medical-beauty":          "의료기기 미용편",
	"medical-pain":            "의료기기 통증편",
	"medical-internal":        "의료기기 내과편",
	"medical-dental":          "의료기기 치과편",
	"facilities":              "시설",
	"construction":            "공사",
	"regulations":             "규정",
	"general":                 "일반",
}

// FieldForPath returns the domain area for a category path.
func FieldForPath(categoryPath string) string {
	parts := strings.Split(strings.Trim(categoryPath, "/"), "/")
	if name, ok := fieldNames[parts[0]]; ok {
		return name
	}
	return parts[0]
}

// TopicForPath returns the topic label for a category path.
func TopicForPath(categoryPath string) string {
	parts := strings.Split(strings.Trim(categoryPath, "/"), "/")
	last := parts[len(parts)-1]
	if name, ok := topicNames[last]; ok {
		return name
	}
	return last
}
