package featureflag

type Flag string

const (
	FlagDisableRegionLocate Flag = "DISABLE_REGION_LOCATE"
	FlagDisableTreeWatch    Flag = "DISABLE_TREE_WATCH"
)
