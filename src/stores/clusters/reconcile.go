package clusters

// Relocation 一次附属存储重命名请求
type Relocation struct {
	OldID string
	NewID string
	// Duplicate 该记录被合并进了更早出现的同 ID 记录
	Duplicate bool
}

// Result 重新派生 ID 后的结果
type Result struct {
	// Clusters 按首次出现顺序排列，每个新 ID 一条
	Clusters []Model
	// Relocations 按输入顺序排列，每条输入记录一个
	Relocations []Relocation
}

// Reconcile 为旧记录重新派生 ID，并合并派生出相同 ID 的记录
// 纯函数，不访问文件系统
func Reconcile(legacy []Model) Result {
	var res Result
	index := make(map[string]int, len(legacy))

	for _, cluster := range legacy {
		newID := DeriveID(cluster.KubeConfigPath, cluster.ContextName)

		if i, ok := index[newID]; ok {
			res.Clusters[i] = Merge(res.Clusters[i], cluster)
			res.Relocations = append(res.Relocations, Relocation{OldID: cluster.ID, NewID: newID, Duplicate: true})
			continue
		}

		index[newID] = len(res.Clusters)
		res.Clusters = append(res.Clusters, seed(newID, cluster))
		res.Relocations = append(res.Relocations, Relocation{OldID: cluster.ID, NewID: newID})
	}

	return res
}

// seed 以第一条记录为基础建立新记录
// 旧记录没有 workspaces 字段，此时结果只包含它自己的 workspace
func seed(newID string, m Model) Model {
	return Model{
		ID:                   newID,
		KubeConfigPath:       m.KubeConfigPath,
		ContextName:          m.ContextName,
		Preferences:          clonePreferences(m.Preferences),
		Metadata:             cloneRaw(m.Metadata),
		Labels:               mergeLabels(m.Labels, nil),
		AccessibleNamespaces: mergeSet(m.AccessibleNamespaces),
		Workspace:            m.Workspace,
		Workspaces:           mergeSet([]string{m.Workspace}, m.Workspaces),
		Extra:                cloneRaw(m.Extra),
	}
}
