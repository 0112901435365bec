package migrations

import "embed"

// Files 暴露动作日志表的 SQL 迁移文件。
//
//go:embed *.sql
var Files embed.FS
