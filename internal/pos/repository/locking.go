package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	lockUpdate = "UPDATE"
	lockShare  = "SHARE"
)

// SQL Server 没有 FOR UPDATE / FOR SHARE，用表提示代替
var sqlServerHints = map[string]string{
	lockUpdate: "UPDLOCK, ROWLOCK",
	lockShare:  "HOLDLOCK, ROWLOCK",
}

// withLock 给查询加行锁，锁持有到事务结束。SQLite 驱动忽略该子句，整库写锁已串行化写入
func withLock(db *gorm.DB, table, strength string) *gorm.DB {
	if db.Dialector.Name() == "sqlserver" {
		return db.Table(table + " WITH (" + sqlServerHints[strength] + ")")
	}
	return db.Clauses(clause.Locking{Strength: strength})
}
