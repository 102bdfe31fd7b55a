package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"Lee_Social/internal/model"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SessionStore 保存每个用户当前有效的 access token
type SessionStore interface {
	AddUserToken(ctx context.Context, userID uint64, token string) error
	DeleteUserToken(ctx context.Context, userID uint64) error
}

type UserService struct {
	repo     *mysql.UserRepository
	sessions SessionStore
	tokens   *pkg.TokenManager
}

// ProfileView 用户信息加资料
type ProfileView struct {
	model.User
	Bio            string `json:"bio"`
	ProfilePicture string `json:"profile_picture"`
}

// ProfileUpdate nil 字段不修改
type ProfileUpdate struct {
	Bio            *string
	ProfilePicture *string
}

func NewUserService(repo *mysql.UserRepository, sessions SessionStore, tokens *pkg.TokenManager) *UserService {
	return &UserService{
		repo:     repo,
		sessions: sessions,
		tokens:   tokens,
	}
}

// Register 用户和资料一起创建，成功后直接登录
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, *pkg.Pair, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, nil, invalid("username, email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	user := &model.User{
		Username: username,
		Password: string(hash),
		Email:    email,
	}
	if err := s.repo.CreateWithProfile(ctx, user, &model.Profile{}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, invalid("username or email already taken")
		}
		return nil, nil, err
	}
	pair, err := s.issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*pkg.Pair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", ErrAuthentication)
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid username or password", ErrAuthentication)
	}
	return s.issue(ctx, user.ID)
}

func (s *UserService) Logout(ctx context.Context, userID uint64) error {
	return s.sessions.DeleteUserToken(ctx, userID)
}

// Refresh 用 refresh token 换新的一对 token，旧的 access token 随之失效
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*pkg.Pair, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAuthentication, err)
	}
	ok, err := s.repo.Exists(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: user no longer exists", ErrAuthentication)
	}
	return s.issue(ctx, claims.UserID)
}

func (s *UserService) Profile(ctx context.Context, userID uint64) (*ProfileView, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, notFound(err, "profile")
	}
	return &ProfileView{User: *user, Bio: p.Bio, ProfilePicture: p.ProfilePicture}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, in ProfileUpdate) (*ProfileView, error) {
	fields := map[string]any{}
	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > 500 {
			return nil, invalid("bio must be at most 500 characters")
		}
		fields["bio"] = *in.Bio
	}
	if in.ProfilePicture != nil {
		fields["profile_picture"] = strings.TrimSpace(*in.ProfilePicture)
	}
	if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// ChangePassword 登录态修改密码，成功后需要重新登录
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, "user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)) != nil {
		return invalid("old password is incorrect")
	}
	if newPassword == "" {
		return invalid("new password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	return s.Logout(ctx, userID)
}

// issue 签发 token 并写入会话
func (s *UserService) issue(ctx context.Context, userID uint64) (*pkg.Pair, error) {
	pair, err := s.tokens.GeneratePair(userID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.AddUserToken(ctx, userID, pair.AccessToken); err != nil {
		return nil, err
	}
	return pair, nil
}
