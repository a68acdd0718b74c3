package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"medichat_server/internal/model"
	"medichat_server/pkg/errorx"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.Message{}, &model.DoctorProfile{}, &model.NurseProfile{}))
	return db
}

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func newMessage(id int64, from, to model.Participant, content string, at time.Duration) *model.Message {
	return &model.Message{
		ID:             id,
		ConversationId: model.DeriveConversationId(from, to),
		SenderType:     from.Type,
		SenderId:       from.ID,
		ReceiverType:   to.Type,
		ReceiverId:     to.ID,
		Content:        content,
		SentAt:         base.Add(at),
	}
}

func TestMessageRepositoryOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(newTestDB(t))
	d7, n3 := model.DoctorOf(7), model.NurseOf(3)

	// 同一时间戳按 id 排序
	require.NoError(t, repo.Create(ctx, newMessage(3, n3, d7, "third", time.Minute)))
	require.NoError(t, repo.Create(ctx, newMessage(2, d7, n3, "second", time.Minute)))
	require.NoError(t, repo.Create(ctx, newMessage(1, d7, n3, "first", 0)))

	msgs, err := repo.FindByConversation(ctx, "DOCTOR_7-NURSE_3", nil)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	assert.False(t, msgs[0].Read)

	since := base.Add(30 * time.Second)
	msgs, err = repo.FindByConversation(ctx, "DOCTOR_7-NURSE_3", &since)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestMessageRepositoryMarkRead(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(newTestDB(t))
	d7, n3 := model.DoctorOf(7), model.NurseOf(3)
	conv := model.DeriveConversationId(d7, n3)

	require.NoError(t, repo.Create(ctx, newMessage(1, d7, n3, "hi", 0)))
	require.NoError(t, repo.Create(ctx, newMessage(2, n3, d7, "hello", time.Second)))
	require.NoError(t, repo.Create(ctx, newMessage(3, d7, n3, "later", 2*time.Second)))

	n, err := repo.MarkRead(ctx, conv, n3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// 重复标记是幂等的
	n, err = repo.MarkRead(ctx, conv, n3, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	counts, err := repo.CountUnreadByConversation(ctx, n3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{conv: 1}, counts)
}

func TestMessageRepositoryUnreadConversations(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(newTestDB(t))
	n3 := model.NurseOf(3)

	require.NoError(t, repo.Create(ctx, newMessage(1, model.DoctorOf(1), n3, "a", 0)))
	require.NoError(t, repo.Create(ctx, newMessage(2, model.DoctorOf(1), n3, "b", time.Second)))
	require.NoError(t, repo.Create(ctx, newMessage(3, model.DoctorOf(2), n3, "c", 2*time.Second)))
	require.NoError(t, repo.Create(ctx, newMessage(4, n3, model.DoctorOf(4), "d", 3*time.Second)))

	total, err := repo.CountUnreadConversations(ctx, n3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, err = repo.CountUnreadConversations(ctx, model.NurseOf(99))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMessageRepositoryParticipantAndAttachments(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(newTestDB(t))
	d7, n3 := model.DoctorOf(7), model.NurseOf(3)

	first := newMessage(1, d7, n3, "", 0)
	first.AttachmentUrl = "http://files/a.png"
	second := newMessage(2, n3, d7, "text only", time.Second)
	third := newMessage(3, d7, n3, "with image", 2*time.Second)
	third.AttachmentUrl = "http://files/b.png"
	other := newMessage(4, model.DoctorOf(8), model.NurseOf(9), "x", 3*time.Second)
	for _, m := range []*model.Message{first, second, third, other} {
		require.NoError(t, repo.Create(ctx, m))
	}

	urls, err := repo.FindAttachmentUrls(ctx, first.ConversationId)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://files/b.png", "http://files/a.png"}, urls)

	msgs, err := repo.FindLatestPerConversation(ctx, n3)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(3), msgs[0].ID)
}

func TestMessageRepositoryLatestPerConversation(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	d7, d8, n3 := model.DoctorOf(7), model.DoctorOf(8), model.NurseOf(3)

	var id int64
	for i := 0; i < 300; i++ {
		id++
		require.NoError(t, repo.Create(ctx, newMessage(id, d7, n3, fmt.Sprintf("m%d", i), time.Duration(i)*time.Second)))
	}
	id++
	require.NoError(t, repo.Create(ctx, newMessage(id, d8, d7, "from d8", 10*time.Second)))
	// 同一时间戳取 id 大的
	id++
	require.NoError(t, repo.Create(ctx, newMessage(id, n3, d7, "reply", 299*time.Second)))
	id++
	require.NoError(t, repo.Create(ctx, newMessage(id, d8, n3, "unrelated", time.Hour)))

	var loaded int64
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:count_rows", func(tx *gorm.DB) {
		loaded += tx.RowsAffected
	}))

	msgs, err := repo.FindLatestPerConversation(ctx, d7)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(2), loaded)
	assert.Equal(t, "reply", msgs[0].Content)
	assert.Equal(t, "DOCTOR_7-NURSE_3", msgs[0].ConversationId)
	assert.Equal(t, "from d8", msgs[1].Content)
	assert.True(t, msgs[0].SentAt.Equal(base.Add(299*time.Second)))
}

func TestDirectoryRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Create(&[]model.DoctorProfile{
		{ID: 7, Name: "John Carter", Specialty: "Cardiology", About: "ER lead"},
		{ID: 8, Name: "Ann 100%_sure", Specialty: "Oncology"},
	}).Error)
	require.NoError(t, db.Create(&[]model.NurseProfile{
		{ID: 3, Name: "Jane Doe", Image: "/img/jane.png"},
		{ID: 7, Name: "Bob Johnson"},
	}).Error)
	repo := NewDirectoryRepository(db)

	profile, err := repo.FindProfile(ctx, model.DoctorOf(7))
	require.NoError(t, err)
	assert.Equal(t, "John Carter", profile.Name)
	assert.Equal(t, "Cardiology", profile.Specialty)

	nurse, err := repo.FindProfile(ctx, model.NurseOf(7))
	require.NoError(t, err)
	assert.Equal(t, "Bob Johnson", nurse.Name)
	assert.Equal(t, "Nurse", nurse.Specialty)

	_, err = repo.FindProfile(ctx, model.NurseOf(42))
	assert.True(t, errorx.IsNotFound(err))

	profiles, err := repo.FindProfiles(ctx, []model.Participant{model.DoctorOf(7), model.NurseOf(3), model.NurseOf(42)})
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
	assert.Equal(t, "/img/jane.png", profiles[model.NurseOf(3)].Image)

	found, err := repo.SearchByName(ctx, "JO", 20)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Bob Johnson", found[0].Name)
	assert.Equal(t, "John Carter", found[1].Name)

	// 通配符按字面匹配
	found, err = repo.SearchByName(ctx, "%_", 20)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, model.DoctorOf(8), found[0].Participant)

	found, err = repo.SearchByName(ctx, "o", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
