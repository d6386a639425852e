package batch

import "gorm.io/gorm"

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateBatchRun(run *BatchRun) error {
	return d.db.Create(run).Error
}

func (d *Database) GetBatchRun(batchID string) (*BatchRun, error) {
	var run BatchRun
	if err := d.db.Where("batch_id = ?", batchID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
