package marketplace

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"crowdtasks-admin/internal/shared/errs"
)

// study 对象 external_study_url 字段中使用的参数名与平台占位符
const (
	ParamParticipantID = "participant_id"
	ParamStudyID       = "study_id"
	ParamSubmissionID  = "submission_id"

	PlaceholderParticipantID = "{{%PROLIFIC_PID%}}"
	PlaceholderStudyID       = "{{%STUDY_ID%}}"
	PlaceholderSubmissionID  = "{{%SESSION_ID%}}"
)

// DefaultAgeRangeQuestionID 平台上年龄段筛选问题的默认 ID
const DefaultAgeRangeQuestionID = "54ac6ea9fdf99b2204feb893"

var (
	emailRe    = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	platformRe = regexp.MustCompile(`^[0-9a-f]{24}$`)
)

// Identity 平台在运行时替换进 URL 的身份信息
type Identity struct {
	ParticipantID string
	StudyID       string
	SubmissionID  string
}

// StudyURL 在配置的 URL 模板上追加身份占位符参数
//
// 占位符原样写入查询串（不做转义），平台才能识别并替换。
// mode 为 IDURLParameters 时追加 participant/study/submission 三个参数，
// 其它模式下工人身份由问题或不需要，只追加 study 与 submission。
// 模板中已存在的同名参数保持不变。
func StudyURL(template string, mode IDOption) (string, error) {
	u, err := url.Parse(template)
	if err != nil {
		return "", fmt.Errorf("parse study url template: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("study url template %q must be absolute", template)
	}

	type kv struct{ key, value string }
	params := []kv{
		{ParamStudyID, PlaceholderStudyID},
		{ParamSubmissionID, PlaceholderSubmissionID},
	}
	switch mode {
	case IDURLParameters:
		params = append([]kv{{ParamParticipantID, PlaceholderParticipantID}}, params...)
	case IDQuestion, IDNotRequired:
	default:
		return "", fmt.Errorf("unknown id option %s", mode)
	}

	existing := u.Query()
	parts := []string{}
	if u.RawQuery != "" {
		parts = append(parts, u.RawQuery)
	}
	for _, p := range params {
		if existing.Has(p.key) {
			continue
		}
		parts = append(parts, p.key+"="+p.value)
	}
	u.RawQuery = strings.Join(parts, "&")
	return u.String(), nil
}

// ResolveStudyURL 用实际身份替换 URL 中的占位符（模拟平台侧的替换）
func ResolveStudyURL(studyURL string, id Identity) string {
	r := strings.NewReplacer(
		PlaceholderParticipantID, url.QueryEscape(id.ParticipantID),
		PlaceholderStudyID, url.QueryEscape(id.StudyID),
		PlaceholderSubmissionID, url.QueryEscape(id.SubmissionID),
	)
	return r.Replace(studyURL)
}

// ParseIdentity 从工人访问的 URL 中读取身份参数并校验格式
func ParseIdentity(rawURL string, mode IDOption) (Identity, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Identity{}, fmt.Errorf("parse study url: %w", err)
	}
	q := u.Query()
	id := Identity{
		ParticipantID: q.Get(ParamParticipantID),
		StudyID:       q.Get(ParamStudyID),
		SubmissionID:  q.Get(ParamSubmissionID),
	}
	if mode == IDURLParameters {
		if err := ValidateWorkerID(id.ParticipantID); err != nil {
			return Identity{}, err
		}
	}
	if err := ValidatePlatformID("study", id.StudyID); err != nil {
		return Identity{}, err
	}
	if err := ValidatePlatformID("submission", id.SubmissionID); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// ValidateEmail 简单的邮箱格式检查
func ValidateEmail(s string) error {
	if !emailRe.MatchString(s) {
		return fmt.Errorf("invalid email %q", s)
	}
	return nil
}

// ValidateWorkerID 校验工人回传的平台 ID 格式
func ValidateWorkerID(s string) error {
	return ValidatePlatformID("participant", s)
}

// ValidatePlatformID 校验平台对象 ID（24 位小写十六进制）
func ValidatePlatformID(kind, s string) error {
	if !platformRe.MatchString(s) {
		return fmt.Errorf("invalid %s id %q", kind, s)
	}
	return nil
}

// Questions 平台筛选问题的 ID 配置
type Questions struct {
	AgeRangeQuestionID string
}

// DefaultQuestions 使用默认问题 ID
func DefaultQuestions() Questions {
	return Questions{AgeRangeQuestionID: DefaultAgeRangeQuestionID}
}

// AgeRange 返回年龄段筛选问题 ID；未配置或格式错误时返回 ErrQuestionUnresolved
func (q Questions) AgeRange() (string, error) {
	if q.AgeRangeQuestionID == "" {
		return "", fmt.Errorf("age range question: not configured: %w", errs.ErrQuestionUnresolved)
	}
	if err := ValidatePlatformID("question", q.AgeRangeQuestionID); err != nil {
		return "", fmt.Errorf("age range question: %v: %w", err, errs.ErrQuestionUnresolved)
	}
	return q.AgeRangeQuestionID, nil
}
