package constants

const (
	CHANNEL_SIZE           = 256     // 每个连接的发送缓冲大小
	FILE_MAX_SIZE          = 8 << 20 // 附件最大大小（字节）
	REDIS_TIMEOUT          = 1       // redis 缓存过期时间（分钟）
	SEARCH_LIMIT           = 20      // 搜索结果上限
	SEARCH_MIN_LEN         = 2       // 搜索关键字最小长度
	DEFAULT_AVATAR         = "/default-avatar.png"
	UNKNOWN_USER_NAME      = "Unknown user"
	NURSE_ROLE_LABEL       = "Nurse"
	DOCTOR_ROLE_LABEL      = "Doctor"                   // 医生未填写专科时的展示值
	NO_DESCRIPTION         = "No description available" // 未填写简介时的展示值
	PHOTO_PREVIEW          = "Photo"
	SELF_PREVIEW_PREFIX    = "You : "
	UNREAD_COUNT_KEY       = "unread_count_" // + participant token
	PRESENCE_KEY_PREFIX    = "presence_"     // + participant token
	IDENTITY_CONTEXT_KEY   = "identity"      // gin.Context 中保存调用方身份的键
	REALTIME_EVENT_SUBJECT = "medichat.realtime"
)
