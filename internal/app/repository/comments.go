package repository

import (
	"errors"

	"crm-backend/internal/app/ds"

	"gorm.io/gorm"
)

// Комментарии к сделкам: только добавление и чтение.

// AddComment добавляет комментарий к сделке от имени пользователя.
func (r *Repository) AddComment(dealID, authorID uint, text string) (*ds.Comment, error) {
	var deal ds.Deal
	err := r.db.First(&deal, dealID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, err
	}

	comment := ds.Comment{DealID: dealID, AuthorID: authorID, Text: text}
	if err := r.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// DealComments возвращает комментарии сделки от новых к старым.
func (r *Repository) DealComments(dealID uint) ([]ds.Comment, error) {
	var comments []ds.Comment
	err := r.db.Preload("Author").
		Where("deal_id = ?", dealID).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}
