package repository

import (
	"context"
	"sort"
	"strings"

	"medichat_server/internal/model"
	"medichat_server/pkg/constants"
	"medichat_server/pkg/errorx"

	"gorm.io/gorm"
)

type directoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository 创建目录 Repository
func NewDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &directoryRepository{db: db}
}

func doctorProfile(d model.DoctorProfile) model.ParticipantProfile {
	return model.ParticipantProfile{
		Participant: model.DoctorOf(d.ID),
		Name:        d.Name,
		Image:       d.Image,
		Specialty:   d.Specialty,
		About:       d.About,
	}
}

func nurseProfile(n model.NurseProfile) model.ParticipantProfile {
	return model.ParticipantProfile{
		Participant: model.NurseOf(n.ID),
		Name:        n.Name,
		Image:       n.Image,
		Specialty:   constants.NURSE_ROLE_LABEL,
	}
}

// FindProfile 查询单个参与者资料
func (r *directoryRepository) FindProfile(ctx context.Context, p model.Participant) (*model.ParticipantProfile, error) {
	var profile model.ParticipantProfile
	switch p.Type {
	case model.Doctor:
		var d model.DoctorProfile
		if err := r.db.WithContext(ctx).Where("doctor_id = ?", p.ID).First(&d).Error; err != nil {
			return nil, wrapDBErrorf(err, "查询医生 id=%d", p.ID)
		}
		profile = doctorProfile(d)
	case model.Nurse:
		var n model.NurseProfile
		if err := r.db.WithContext(ctx).Where("nurse_id = ?", p.ID).First(&n).Error; err != nil {
			return nil, wrapDBErrorf(err, "查询护士 id=%d", p.ID)
		}
		profile = nurseProfile(n)
	default:
		return nil, errorx.Newf(errorx.CodeInvalidParam, "invalid participant type %q", string(p.Type))
	}
	return &profile, nil
}

// FindProfiles 批量查询资料
func (r *directoryRepository) FindProfiles(ctx context.Context, ps []model.Participant) (map[model.Participant]model.ParticipantProfile, error) {
	var doctorIds, nurseIds []int64
	for _, p := range ps {
		switch p.Type {
		case model.Doctor:
			doctorIds = append(doctorIds, p.ID)
		case model.Nurse:
			nurseIds = append(nurseIds, p.ID)
		}
	}

	profiles := make(map[model.Participant]model.ParticipantProfile, len(ps))
	if len(doctorIds) > 0 {
		var doctors []model.DoctorProfile
		if err := r.db.WithContext(ctx).Where("doctor_id IN ?", doctorIds).Find(&doctors).Error; err != nil {
			return nil, wrapDBError(err, "批量查询医生")
		}
		for _, d := range doctors {
			profiles[model.DoctorOf(d.ID)] = doctorProfile(d)
		}
	}
	if len(nurseIds) > 0 {
		var nurses []model.NurseProfile
		if err := r.db.WithContext(ctx).Where("nurse_id IN ?", nurseIds).Find(&nurses).Error; err != nil {
			return nil, wrapDBError(err, "批量查询护士")
		}
		for _, n := range nurses {
			profiles[model.NurseOf(n.ID)] = nurseProfile(n)
		}
	}
	return profiles, nil
}

// SearchByName 按姓名搜索医生和护士
// 两张表各取 limit 条，合并排序后再截断
func (r *directoryRepository) SearchByName(ctx context.Context, term string, limit int) ([]model.ParticipantProfile, error) {
	pattern := containsPattern(term)
	cond := "LOWER(name) LIKE ? ESCAPE '" + likeEscape + "'"

	var doctors []model.DoctorProfile
	if err := r.db.WithContext(ctx).Where(cond, pattern).Order("name ASC").Limit(limit).Find(&doctors).Error; err != nil {
		return nil, wrapDBErrorf(err, "搜索医生 term=%s", term)
	}
	var nurses []model.NurseProfile
	if err := r.db.WithContext(ctx).Where(cond, pattern).Order("name ASC").Limit(limit).Find(&nurses).Error; err != nil {
		return nil, wrapDBErrorf(err, "搜索护士 term=%s", term)
	}

	results := make([]model.ParticipantProfile, 0, len(doctors)+len(nurses))
	for _, d := range doctors {
		results = append(results, doctorProfile(d))
	}
	for _, n := range nurses {
		results = append(results, nurseProfile(n))
	}
	sort.SliceStable(results, func(i, j int) bool {
		ni, nj := strings.ToLower(results[i].Name), strings.ToLower(results[j].Name)
		if ni != nj {
			return ni < nj
		}
		return results[i].Token() < results[j].Token()
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
