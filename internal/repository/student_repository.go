package repository

import (
	"errors"
	"student_forms/internal/model"
	"student_forms/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

// Upsert creates the student or, when the roll number is already known,
// updates the name and last login time.
func (r *StudentRepository) Upsert(student *model.Student) error {
	now := time.Now()
	if student.LastLogin.IsZero() {
		student.LastLogin = now
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "roll_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "last_login", "updated_at"}),
	}).Create(student).Error
}

func (r *StudentRepository) FindByRollNumber(rollNumber string) (*model.Student, error) {
	var s model.Student
	err := r.DB.Where("roll_number = ?", rollNumber).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) Count() (int64, error) {
	var n int64
	err := r.DB.Model(&model.Student{}).Count(&n).Error
	return n, err
}
