package model

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Balance      int64  `json:"balance"`
	RewardPoints int64  `json:"reward_points"`
}

type CreateUserRequest struct {
	Name string `json:"name"`
}

type CreateUserResponse struct {
	User User `json:"user"`
}

type GetUserRequest struct{}

type GetUserResponse struct {
	User User `json:"user"`
}
