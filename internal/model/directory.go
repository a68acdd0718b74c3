package model

// DoctorProfile 医生目录表，由外部人员管理系统维护，本服务只读
type DoctorProfile struct {
	ID        int64  `gorm:"column:doctor_id;primaryKey"`
	Name      string `gorm:"column:name;type:varchar(100);index"`
	Image     string `gorm:"column:image;type:varchar(512)"`
	Specialty string `gorm:"column:specialty;type:varchar(100)"`
	About     string `gorm:"column:about;type:TEXT"`
}

func (DoctorProfile) TableName() string {
	return "doctors"
}

// NurseProfile 护士目录表，护士没有专科和简介
type NurseProfile struct {
	ID    int64  `gorm:"column:nurse_id;primaryKey"`
	Name  string `gorm:"column:name;type:varchar(100);index"`
	Image string `gorm:"column:image;type:varchar(512)"`
}

func (NurseProfile) TableName() string {
	return "nurses"
}

// ParticipantProfile 目录中的参与者资料
type ParticipantProfile struct {
	Participant
	Name      string
	Image     string
	Specialty string // 护士固定为 "Nurse"
	About     string
}
