package repository

import (
	"context"

	"egzersizlab/internal/database"
	"egzersizlab/internal/models"
)

// CreateUser registers a new user with a hashed password.
func CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	user := &models.User{Email: email}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := database.DB.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail looks a user up by email.
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := database.DB.WithContext(ctx).Where("email = ?", email).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID looks a user up by primary key.
func GetUserByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := database.DB.WithContext(ctx).First(user, id).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}
