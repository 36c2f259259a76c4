package pool

// DebugWalkPools logs a tree of per-pool byte totals rooted at root, plus
// free-list and malloc/free-hit accounting, and returns the grand total.
func DebugWalkPools(root *Pool) int64 {
	log := logger()
	log.Info().Msg("pool allocation tree:")

	total := walkPools(root, 0)

	log.Info().Int64("total_bytes", total).Msg("total allocated")
	if freeList != nil {
		log.Info().Int64("free_list_bytes", bytesInFreeList()).Msg("free block list")
	} else {
		log.Info().Msg("free block list: empty")
	}
	log.Info().
		Uint64("malloc_count", StatMalloc()).
		Uint64("free_hit_count", StatFreeHit()).
		Msg("block stats")

	return total
}

// walkPools recurses depth-first over p's sub-pool list, indenting by
// level, and returns the sum of bytes held by p and its descendants.
func walkPools(p *Pool, level int) int64 {
	if p == nil {
		return 0
	}

	n := bytesInChain(p.first)
	total := n

	indent := ""
	for i := 0; i < level; i++ {
		indent += "  "
	}
	logger().Debug().Msgf("%s- %d bytes", indent, n)

	for c := p.subPools; c != nil; c = c.subNext {
		total += walkPools(c, level+1)
	}

	return total
}
