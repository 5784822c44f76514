// Package migration 提供按版本顺序升级本地存储文件的迁移框架
//
// 每种存储（集群列表、热键栏、网页链接等）各自拥有一组带版本号的迁移声明，
// 新版本程序第一次打开旧的存储文件时，按版本升序执行尚未应用的迁移，主要特性包括：
//
// 1. 版本号：Version 使用语义化版本，零值表示从未迁移
// 2. 声明注册：RegistryBuilder 收集声明并在构建时统一校验版本号格式和重复版本
// 3. 逐步记录：每一步成功后立即记录版本，中途失败后下次从失败的步骤继续
// 4. 锁与备份：迁移期间持有锁文件用于识别崩溃；关键存储在迁移前保存一份副本
// 5. 批量迁移：启动时一次迁移所有存储类型
//
// 基本使用示例：
//
//	reg, err := migration.NewRegistryBuilder("cluster-store").
//	    Add("5.0.0-beta.13", "re-derive cluster ids", run).
//	    Build()
//
//	result, err := migration.MigrateStore(ctx, &migration.MigrationConfig{
//	    Schema: &migration.StoreSchema{Kind: "cluster-store", FileName: "lens-cluster-store.json", Registry: reg},
//	    Store:  doc,
//	})
package migration
