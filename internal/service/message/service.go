// Package message 实现消息的发送、历史记录、最近会话、搜索和未读统计
package message

import (
	"context"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"medichat_server/internal/dao/mysql/repository"
	myredis "medichat_server/internal/dao/redis"
	"medichat_server/internal/infrastructure/storage"
	"medichat_server/internal/model"
	"medichat_server/pkg/constants"
	"medichat_server/pkg/errorx"
	"medichat_server/pkg/util/snowflake"
)

// Notifier 消息落库后的实时投递通道（实时网关）
type Notifier interface {
	PublishMessage(ctx context.Context, msg *model.Message) error
}

// Attachment 待上传的附件
type Attachment struct {
	FileName string
	Content  io.Reader
}

// messageService 消息业务逻辑实现
type messageService struct {
	repos    *repository.Repositories
	uploader storage.Uploader
	cache    myredis.AsyncCacheService
	notifier Notifier
	now      func() time.Time
	newID    func() int64
}

// NewMessageService 构造函数，cache 可以为 nil（不缓存未读数）
func NewMessageService(repos *repository.Repositories, uploader storage.Uploader, cache myredis.AsyncCacheService, notifier Notifier) *messageService {
	return &messageService{
		repos:    repos,
		uploader: uploader,
		cache:    cache,
		notifier: notifier,
		now:      time.Now,
		newID:    snowflake.GenerateID,
	}
}

// Send 发送消息
// 文本（去掉首尾空白后）和附件至少有一个；附件先上传，上传失败不写库
// 写库使用脱离请求取消的 context，附件上传成功后发送不可取消
func (m *messageService) Send(ctx context.Context, sender, receiver model.Participant, content string, attachment *Attachment) (*model.Message, error) {
	if !sender.Valid() {
		return nil, errorx.New(errorx.CodeUnauthorized, "invalid sender identity")
	}
	if !receiver.Valid() {
		return nil, errorx.New(errorx.CodeInvalidParam, "invalid receiver")
	}
	if sender == receiver {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot send a message to yourself")
	}
	if strings.TrimSpace(content) == "" && attachment == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, "message must have content or an attachment")
	}

	msg := &model.Message{
		ConversationId: model.DeriveConversationId(sender, receiver),
		SenderType:     sender.Type,
		SenderId:       sender.ID,
		ReceiverType:   receiver.Type,
		ReceiverId:     receiver.ID,
		Content:        content,
	}

	if attachment != nil {
		url, err := m.uploader.Upload(ctx, attachment.FileName, attachment.Content)
		if err != nil {
			zap.L().Error("attachment upload failed", zap.String("conversation", msg.ConversationId), zap.Error(err))
			if errorx.GetCode(err) == errorx.CodeInvalidParam {
				return nil, err
			}
			return nil, errorx.Wrap(err, errorx.CodeUploadFailed, "attachment upload failed")
		}
		msg.AttachmentUrl = url
	}

	msg.ID = m.newID()
	msg.SentAt = m.now().UTC()
	if err := m.repos.Message.Create(context.WithoutCancel(ctx), msg); err != nil {
		return nil, err
	}

	if err := m.notifier.PublishMessage(context.WithoutCancel(ctx), msg); err != nil {
		// 已落库，客户端重连后通过历史记录补齐
		zap.L().Error("publish message failed", zap.Int64("message_id", msg.ID), zap.Error(err))
	}
	m.invalidateUnread(context.WithoutCancel(ctx), receiver)
	return msg, nil
}

// History 获取与对方的全部消息，按 (sent_at, id) 升序
// 读取快照后把其中发给自己的未读消息标记为已读；返回的是标记前的快照
func (m *messageService) History(ctx context.Context, self, other model.Participant, since *time.Time) ([]model.Message, error) {
	if !other.Valid() {
		return nil, errorx.New(errorx.CodeInvalidParam, "invalid participant")
	}
	conversationId := model.DeriveConversationId(self, other)

	messages, err := m.repos.Message.FindByConversation(ctx, conversationId, since)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	var upTo int64
	for i := range messages {
		if messages[i].ID > upTo {
			upTo = messages[i].ID
		}
	}
	marked, err := m.repos.Message.MarkRead(ctx, conversationId, self, upTo)
	if err != nil {
		return nil, err
	}
	if marked > 0 {
		m.invalidateUnread(ctx, self)
	}
	return messages, nil
}

// Recent 最近会话列表，每个会话取最新一条消息，新的在前
func (m *messageService) Recent(ctx context.Context, self model.Participant) ([]model.ConversationSummary, error) {
	latest, err := m.repos.Message.FindLatestPerConversation(ctx, self)
	if err != nil {
		return nil, err
	}
	unread, err := m.repos.Message.CountUnreadByConversation(ctx, self)
	if err != nil {
		return nil, err
	}

	others := make([]model.Participant, len(latest))
	for i := range latest {
		others[i] = otherSide(&latest[i], self)
	}

	profiles, err := m.repos.Directory.FindProfiles(ctx, others)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ConversationSummary, 0, len(latest))
	for i := range latest {
		msg, other := &latest[i], others[i]
		sentBySelf := msg.Sender() == self
		summaries = append(summaries, model.ConversationSummary{
			ConversationId:     msg.ConversationId,
			Other:              profileOrFallback(profiles, other),
			LastMessagePreview: preview(msg, sentBySelf),
			LastMessageTime:    msg.SentAt,
			LastSender:         msg.Sender(),
			LastAttachmentUrl:  msg.AttachmentUrl,
			LastRead:           msg.Read,
			Unread:             !sentBySelf && !msg.Read,
			UnreadCount:        unread[msg.ConversationId],
		})
	}
	return summaries, nil
}

// UnreadConversationCount 有未读消息（发给自己）的会话数
// 结果缓存在 Redis 中，发送和读取历史时失效
func (m *messageService) UnreadConversationCount(ctx context.Context, self model.Participant) (int64, error) {
	key := unreadKey(self)
	if m.cache != nil {
		cached, err := m.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("read unread count cache failed", zap.String("key", key), zap.Error(err))
		} else if cached != "" {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		}
	}

	count, err := m.repos.Message.CountUnreadConversations(ctx, self)
	if err != nil {
		return 0, err
	}

	if m.cache != nil {
		cache := m.cache
		cache.SubmitTask(func() {
			if err := cache.Set(context.Background(), key, strconv.FormatInt(count, 10), time.Duration(constants.REDIS_TIMEOUT)*time.Minute); err != nil {
				zap.L().Error("write unread count cache failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
	return count, nil
}

// Search 按姓名搜索医生和护士，排除调用者本人
func (m *messageService) Search(ctx context.Context, term string, excluding model.Participant) ([]model.ParticipantProfile, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < constants.SEARCH_MIN_LEN {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "search term must have at least %d characters", constants.SEARCH_MIN_LEN)
	}

	// 多取一条，排除本人后仍能凑满上限
	found, err := m.repos.Directory.SearchByName(ctx, term, constants.SEARCH_LIMIT+1)
	if err != nil {
		return nil, err
	}
	results := make([]model.ParticipantProfile, 0, len(found))
	for _, p := range found {
		if p.Participant == excluding {
			continue
		}
		results = append(results, p)
		if len(results) == constants.SEARCH_LIMIT {
			break
		}
	}
	return results, nil
}

// SharedMedia 会话中共享的附件，新的在前，附带对方的专科和简介
// 对方在目录中但未填写专科或简介时使用默认文案
func (m *messageService) SharedMedia(ctx context.Context, self, other model.Participant) (*model.SharedMedia, error) {
	if !other.Valid() {
		return nil, errorx.New(errorx.CodeInvalidParam, "invalid participant")
	}
	urls, err := m.repos.Message.FindAttachmentUrls(ctx, model.DeriveConversationId(self, other))
	if err != nil {
		return nil, err
	}
	media := &model.SharedMedia{Media: urls}
	if media.Media == nil {
		media.Media = []string{}
	}

	profile, err := m.repos.Directory.FindProfile(ctx, other)
	switch {
	case err == nil:
		media.Specialty = profile.Specialty
		if media.Specialty == "" {
			media.Specialty = constants.DOCTOR_ROLE_LABEL
		}
		media.About = profile.About
		if media.About == "" {
			media.About = constants.NO_DESCRIPTION
		}
	case errorx.IsNotFound(err):
		// 目录中已删除的参与者仍可查看历史附件
	default:
		return nil, err
	}
	return media, nil
}

// invalidateUnread 同步删除未读数缓存，写库之后立即生效
func (m *messageService) invalidateUnread(ctx context.Context, p model.Participant) {
	if m.cache == nil {
		return
	}
	key := unreadKey(p)
	if err := m.cache.Delete(ctx, key); err != nil {
		zap.L().Error("invalidate unread count cache failed", zap.String("key", key), zap.Error(err))
	}
}

func unreadKey(p model.Participant) string {
	return constants.UNREAD_COUNT_KEY + p.Token()
}

func otherSide(msg *model.Message, self model.Participant) model.Participant {
	if msg.Sender() == self {
		return msg.Receiver()
	}
	return msg.Sender()
}

func preview(msg *model.Message, sentBySelf bool) string {
	text := msg.Content
	if strings.TrimSpace(text) == "" {
		text = constants.PHOTO_PREVIEW
	}
	if sentBySelf {
		return constants.SELF_PREVIEW_PREFIX + text
	}
	return text
}

func profileOrFallback(profiles map[model.Participant]model.ParticipantProfile, p model.Participant) model.ParticipantProfile {
	profile, ok := profiles[p]
	if !ok {
		profile = model.ParticipantProfile{Participant: p, Name: constants.UNKNOWN_USER_NAME}
		if p.Type == model.Nurse {
			profile.Specialty = constants.NURSE_ROLE_LABEL
		}
	}
	if profile.Image == "" {
		profile.Image = constants.DEFAULT_AVATAR
	}
	return profile
}
