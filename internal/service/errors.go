package service

import (
	"errors"
	"fmt"

	"Lee_Social/internal/policy"

	"gorm.io/gorm"
)

var (
	ErrAuthentication  = errors.New("authentication credentials were not provided or are invalid")
	ErrPermission      = policy.ErrDenied
	ErrNotFound        = errors.New("not found")
	ErrSelfReference   = errors.New("you cannot follow yourself")
	ErrSelfLike        = errors.New("you cannot like your own post")
	ErrDuplicateAction = errors.New("you have already liked this post")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotLiked 属于 NotFound，但对外按 400 返回
	ErrNotLiked error = notLikedError{}
)

type notLikedError struct{}

func (notLikedError) Error() string { return "have not liked this post yet" }

func (notLikedError) Is(target error) bool { return target == ErrNotFound }

// notFound 把 gorm 的记录不存在转成 ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}
