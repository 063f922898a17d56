package models

// TransferLog is one completed player-to-player transfer, kept for history.
type TransferLog struct {
	ID           string  `json:"id" redis:"id"`
	FromUserID   string  `json:"from_user_id" redis:"from_user_id"`
	FromUsername string  `json:"from_username" redis:"from_username"`
	ToUserID     string  `json:"to_user_id" redis:"to_user_id"`
	ToUsername   string  `json:"to_username" redis:"to_username"`
	Amount       float64 `json:"amount" redis:"amount"`
	CreatedAt    int64   `json:"created_at" redis:"created_at"`
}
