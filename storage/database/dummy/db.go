// Package dummydb keeps every repository in memory. It backs the HTTP tests and the local demo server.
package dummydb

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/liveclass"
	"github.com/trezcool/elimu/core/message"
	"github.com/trezcool/elimu/core/user"
)

type (
	DB struct {
		user         *userTable
		course       *courseTable
		enrollment   *enrollmentTable
		gamification *gamificationTable
		coupon       *couponTable
		message      *messageTable
		liveClass    *liveClassTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		courses  map[string]*course.Course
		chapters map[string]*course.Chapter
		units    map[string]*course.ContentUnit
		quizzes  map[string]*course.Quiz
	}

	enrollmentTable struct {
		sync.RWMutex
		enrollments map[string]*enrollment.Enrollment       // {id: enrollment}
		completions map[string]*enrollment.CompletionRecord // {userID/unitID: record}
		attempts    []enrollment.QuizAttempt
	}

	gamificationTable struct {
		sync.RWMutex
		xp     map[string]*gamification.UserXP
		badges map[string][]gamification.UserBadge // {userID: badges}
	}

	couponTable struct {
		sync.RWMutex
		coupons map[string]*coupon.Coupon
		usages  []coupon.Usage
	}

	messageTable struct {
		sync.RWMutex
		messages map[string]*message.Message
	}

	liveClassTable struct {
		sync.RWMutex
		classes map[string]*liveclass.LiveClass
	}
)

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.user = &userTable{table: make(map[string]*user.User)}
	db.course = &courseTable{
		courses:  make(map[string]*course.Course),
		chapters: make(map[string]*course.Chapter),
		units:    make(map[string]*course.ContentUnit),
		quizzes:  make(map[string]*course.Quiz),
	}
	db.enrollment = &enrollmentTable{
		enrollments: make(map[string]*enrollment.Enrollment),
		completions: make(map[string]*enrollment.CompletionRecord),
	}
	db.gamification = &gamificationTable{
		xp:     make(map[string]*gamification.UserXP),
		badges: make(map[string][]gamification.UserBadge),
	}
	db.coupon = &couponTable{coupons: make(map[string]*coupon.Coupon)}
	db.message = &messageTable{messages: make(map[string]*message.Message)}
	db.liveClass = &liveClassTable{classes: make(map[string]*liveclass.LiveClass)}
}

// TxRunner calls fn without a transaction: the in-memory tables apply writes immediately
// and nothing is rolled back when fn fails.
type TxRunner struct{}

var _ core.TxRunner = TxRunner{} // interface compliance check

func (TxRunner) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

func compareTimes(t1, t2 time.Time) int {
	switch {
	case t1.Before(t2):
		return -1
	case t1.After(t2):
		return 1
	default:
		return 0
	}
}
