package model

import "time"

// User 对应于数据库中的 users 表。
// TenantID 标识用户所属的租户（机构），是检索和审计的隔离边界。
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"username"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"`
	Role      string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"` // user / admin
	TenantID  string    `gorm:"type:varchar(36);not null;index" json:"tenantId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}
