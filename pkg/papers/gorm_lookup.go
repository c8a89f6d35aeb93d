package papers

import (
	"context"

	"gorm.io/gorm"
)

// paperModel maps the crawler-maintained papers table. This service only
// reads it.
type paperModel struct {
	ArxivId    string `gorm:"column:arxiv_id;primaryKey"`
	Title      string `gorm:"column:title"`
	Abstract   string `gorm:"column:abstract"`
	Categories string `gorm:"column:categories"`
}

func (paperModel) TableName() string {
	return "papers"
}

type GormLookup struct {
	db *gorm.DB
}

func NewGormLookup(db *gorm.DB) *GormLookup {
	return &GormLookup{db: db}
}

func (l *GormLookup) Find(ctx context.Context, ids []string) (map[string]Paper, error) {
	if len(ids) == 0 {
		return map[string]Paper{}, nil
	}

	var rows []paperModel
	if err := l.db.WithContext(ctx).Where("arxiv_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[string]Paper, len(rows))
	for _, row := range rows {
		result[row.ArxivId] = Paper{
			ArxivId:    row.ArxivId,
			Title:      row.Title,
			Abstract:   row.Abstract,
			Categories: row.Categories,
		}
	}
	return result, nil
}
