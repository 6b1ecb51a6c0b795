package utils

import "hash/fnv"

// PartitionForKey 按 key 选择分区，同一个 key 总是落在同一分区，保证同一通知的更新有序
func PartitionForKey(key []byte, partitions int) int32 {
	if partitions <= 1 || len(key) == 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write(key)
	return int32(h.Sum32() % uint32(partitions))
}
