// Package model 定义数据库实体模型和会话寻址等领域类型
package model

import (
	"fmt"
	"strconv"
	"strings"

	"medichat_server/pkg/errorx"
)

// ParticipantType 参与者类型，医生与护士的 ID 各自独立编号，可能重复
type ParticipantType string

const (
	Doctor ParticipantType = "DOCTOR"
	Nurse  ParticipantType = "NURSE"
)

// ParseParticipantType 解析参与者类型，大小写不敏感，统一为大写
func ParseParticipantType(s string) (ParticipantType, error) {
	switch ParticipantType(strings.ToUpper(strings.TrimSpace(s))) {
	case Doctor:
		return Doctor, nil
	case Nurse:
		return Nurse, nil
	}
	return "", errorx.Newf(errorx.CodeInvalidParam, "invalid participant type %q", s)
}

// Participant 会话参与者，也是身份解析器产出的 Identity
type Participant struct {
	Type ParticipantType
	ID   int64
}

// NewParticipant 构造并校验参与者
func NewParticipant(t ParticipantType, id int64) (Participant, error) {
	if t != Doctor && t != Nurse {
		return Participant{}, errorx.Newf(errorx.CodeInvalidParam, "invalid participant type %q", string(t))
	}
	if id <= 0 {
		return Participant{}, errorx.Newf(errorx.CodeInvalidParam, "invalid participant id %d", id)
	}
	return Participant{Type: t, ID: id}, nil
}

// ParseParticipant 从字符串形式的 id/type 解析参与者（HTTP 参数、实时帧）
func ParseParticipant(id string, typ string) (Participant, error) {
	t, err := ParseParticipantType(typ)
	if err != nil {
		return Participant{}, err
	}
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return Participant{}, errorx.Wrapf(err, errorx.CodeInvalidParam, "invalid participant id %q", id)
	}
	return NewParticipant(t, n)
}

func DoctorOf(id int64) Participant { return Participant{Type: Doctor, ID: id} }

func NurseOf(id int64) Participant { return Participant{Type: Nurse, ID: id} }

// Valid 类型合法且 id 为正
func (p Participant) Valid() bool {
	return (p.Type == Doctor || p.Type == Nurse) && p.ID > 0
}

// Token 形如 DOCTOR_7
func (p Participant) Token() string {
	return string(p.Type) + "_" + strconv.FormatInt(p.ID, 10)
}

func (p Participant) String() string {
	return p.Token()
}

// DeriveConversationId 计算两名参与者的会话 ID
// 两个 token 按字典序排序后以 "-" 连接，结果与参数顺序无关
// 发送、历史、共享媒体和加入房间都必须走这一个函数
func DeriveConversationId(a, b Participant) string {
	ta, tb := a.Token(), b.Token()
	if ta > tb {
		ta, tb = tb, ta
	}
	return ta + "-" + tb
}

// ParseConversationId 解析会话 ID，返回排序后的两名参与者
// 非规范形式（顺序颠倒、带前导零等）视为非法
func ParseConversationId(id string) (Participant, Participant, error) {
	left, right, ok := strings.Cut(id, "-")
	if !ok {
		return Participant{}, Participant{}, errorx.Newf(errorx.CodeInvalidParam, "invalid conversation id %q", id)
	}
	a, err := parseToken(left)
	if err != nil {
		return Participant{}, Participant{}, err
	}
	b, err := parseToken(right)
	if err != nil {
		return Participant{}, Participant{}, err
	}
	if DeriveConversationId(a, b) != id {
		return Participant{}, Participant{}, errorx.Newf(errorx.CodeInvalidParam, "non canonical conversation id %q", id)
	}
	return a, b, nil
}

// OtherParticipant 返回会话中 self 之外的另一方
func OtherParticipant(conversationId string, self Participant) (Participant, error) {
	a, b, err := ParseConversationId(conversationId)
	if err != nil {
		return Participant{}, err
	}
	switch self {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return Participant{}, errorx.Newf(errorx.CodeInvalidParam, "%s is not part of conversation %s", self, conversationId)
}

func parseToken(token string) (Participant, error) {
	typ, id, ok := strings.Cut(token, "_")
	if !ok {
		return Participant{}, errorx.Newf(errorx.CodeInvalidParam, "invalid participant token %q", token)
	}
	if typ != string(Doctor) && typ != string(Nurse) {
		return Participant{}, errorx.Newf(errorx.CodeInvalidParam, "invalid participant token %q", token)
	}
	p, err := ParseParticipant(id, typ)
	if err != nil {
		return Participant{}, err
	}
	if p.Token() != token {
		return Participant{}, fmt.Errorf("%w: token %q", errorx.ErrInvalidParam, token)
	}
	return p, nil
}
