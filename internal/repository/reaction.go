package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"vidshare_backend/internal/model"
)

// HideCommentAtDislikes is the dislike count at which a comment is hidden
const HideCommentAtDislikes = 2

var ErrTargetNotFound = errors.New("reaction target not found")

type ReactionResult struct {
	// Kind is the caller's reaction after the toggle, empty when removed
	Kind     model.ReactionKind `json:"reaction"`
	Likes    int64              `json:"likes"`
	Dislikes int64              `json:"dislikes"`
	Hidden   bool               `json:"hidden,omitempty"`
}

type ReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

func counterColumn(kind model.ReactionKind) string {
	if kind == model.ReactionLike {
		return "likes"
	}
	return "dislikes"
}

// Toggle applies a like or dislike. Repeating the same kind removes it and
// the other kind switches it. Counters on the target move in the same
// transaction.
func (r *ReactionRepository) Toggle(ctx context.Context, userID uint, target model.TargetType, targetID uint, kind model.ReactionKind) (*ReactionResult, error) {
	var table interface{}
	switch target {
	case model.TargetVideo:
		table = &model.Video{}
	case model.TargetComment:
		table = &model.Comment{}
	default:
		return nil, fmt.Errorf("unknown target type %q", target)
	}

	result := &ReactionResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(table).Where("id = ?", targetID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrTargetNotFound
		}

		bump := func(column string, delta int) error {
			return tx.Model(table).Where("id = ?", targetID).
				UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
		}

		var existing model.Reaction
		err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&model.Reaction{UserID: userID, TargetType: target, TargetID: targetID, Kind: kind}).Error; err != nil {
				return err
			}
			if err := bump(counterColumn(kind), 1); err != nil {
				return err
			}
			result.Kind = kind

		case err != nil:
			return err

		case existing.Kind == kind:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := bump(counterColumn(kind), -1); err != nil {
				return err
			}

		default:
			if err := tx.Model(&existing).Update("kind", kind).Error; err != nil {
				return err
			}
			if err := bump(counterColumn(existing.Kind), -1); err != nil {
				return err
			}
			if err := bump(counterColumn(kind), 1); err != nil {
				return err
			}
			result.Kind = kind
		}

		return r.readCounters(tx, target, targetID, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *ReactionRepository) readCounters(tx *gorm.DB, target model.TargetType, targetID uint, result *ReactionResult) error {
	if target == model.TargetVideo {
		var v model.Video
		if err := tx.Select("id", "likes", "dislikes").First(&v, targetID).Error; err != nil {
			return err
		}
		result.Likes, result.Dislikes = v.Likes, v.Dislikes
		return nil
	}

	var c model.Comment
	if err := tx.Select("id", "likes", "dislikes", "hidden").First(&c, targetID).Error; err != nil {
		return err
	}
	result.Likes, result.Dislikes, result.Hidden = c.Likes, c.Dislikes, c.Hidden

	if !c.Hidden && c.Dislikes >= HideCommentAtDislikes {
		if err := tx.Model(&model.Comment{}).Where("id = ?", targetID).Update("hidden", true).Error; err != nil {
			return err
		}
		result.Hidden = true
	}
	return nil
}

// KindFor returns the user's current reaction on a target, empty when none
func (r *ReactionRepository) KindFor(ctx context.Context, userID uint, target model.TargetType, targetID uint) (model.ReactionKind, error) {
	var existing model.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return existing.Kind, err
}
