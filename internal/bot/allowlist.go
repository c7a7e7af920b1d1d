package bot

// AllowList restricts which chats may use the bot. The zero value allows
// every chat.
type AllowList struct {
	ids map[int64]struct{}
}

func NewAllowList(ids []int64) AllowList {
	if len(ids) == 0 {
		return AllowList{}
	}
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return AllowList{ids: m}
}

func (a AllowList) Allowed(chatID int64) bool {
	if len(a.ids) == 0 {
		return true
	}
	_, ok := a.ids[chatID]
	return ok
}

// NotAllowed is the reply sent to chats outside the list.
func NotAllowed() Reply {
	return Reply{Text: msgNotAllowed}
}
