package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/liveclass"
)

type liveClassRepository struct {
	db *DB
}

var _ liveclass.Repository = (*liveClassRepository)(nil) // interface compliance check

func NewLiveClassRepository(db *DB) *liveClassRepository {
	return &liveClassRepository{db: db}
}

func (repo *liveClassRepository) CreateLiveClass(_ context.Context, lc liveclass.LiveClass, _ ...core.DBExecutor) (liveclass.LiveClass, error) {
	repo.db.liveClass.Lock()
	defer repo.db.liveClass.Unlock()

	repo.db.liveClass.classes[lc.ID] = &lc
	return lc, nil
}

func (repo *liveClassRepository) GetLiveClass(_ context.Context, id string, _ ...core.DBExecutor) (liveclass.LiveClass, error) {
	repo.db.liveClass.RLock()
	defer repo.db.liveClass.RUnlock()

	if lc, ok := repo.db.liveClass.classes[id]; ok {
		return *lc, nil
	}
	return liveclass.LiveClass{}, liveclass.ErrNotFound
}

func (repo *liveClassRepository) QueryLiveClasses(_ context.Context, filter liveclass.QueryFilter, _ ...core.DBExecutor) ([]liveclass.LiveClass, error) {
	repo.db.liveClass.RLock()
	defer repo.db.liveClass.RUnlock()

	classes := make([]liveclass.LiveClass, 0)
	for _, lc := range repo.db.liveClass.classes {
		if filter.CourseID != "" && lc.CourseID != filter.CourseID {
			continue
		}
		if !filter.StartsFrom.IsZero() && lc.StartsAt.Before(filter.StartsFrom) {
			continue
		}
		if !filter.StartsTo.IsZero() && lc.StartsAt.After(filter.StartsTo) {
			continue
		}
		if filter.ReminderSent != nil && lc.ReminderSent != *filter.ReminderSent {
			continue
		}
		classes = append(classes, *lc)
	}
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].StartsAt.Before(classes[j].StartsAt) })
	return classes, nil
}

func (repo *liveClassRepository) DeleteLiveClass(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.liveClass.Lock()
	defer repo.db.liveClass.Unlock()

	if _, ok := repo.db.liveClass.classes[id]; !ok {
		return liveclass.ErrNotFound
	}
	delete(repo.db.liveClass.classes, id)
	return nil
}

func (repo *liveClassRepository) MarkReminderSent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.liveClass.Lock()
	defer repo.db.liveClass.Unlock()

	if lc, ok := repo.db.liveClass.classes[id]; ok {
		lc.ReminderSent = true
	}
	return nil
}
