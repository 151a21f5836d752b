package timeline

// Select 外部选中事件（列表视图），不回发选中通知
func (t *Timeline) Select(inc Incident) {
	v := inc
	t.selected = &v
	t.focus(inc)
}

// FocusSelected 重新定位到已选中事件
func (t *Timeline) FocusSelected() bool {
	if t.selected == nil {
		return false
	}
	t.focus(*t.selected)
	return true
}

// ClickIncident 点击事件块
func (t *Timeline) ClickIncident(id int64) bool {
	for _, inc := range t.incidents {
		if inc.ID == id {
			t.JumpToIncident(inc)
			return true
		}
	}
	return false
}

// JumpToIncident 快速跳转：选中并定位，通知宿主
func (t *Timeline) JumpToIncident(inc Incident) {
	t.Select(inc)
	t.notifySelect(inc)
}

// focus 日期不同先切日期并通知一次，再居中，最后游标落在事件开始
// 对同一事件重复调用结果一致
func (t *Timeline) focus(inc Incident) {
	t.stop()
	if d := DateOf(inc.Start, t.loc); d != t.viewport.Date() {
		t.changeDate(d)
		t.notifyDate()
	}
	t.viewport.CenterOn(inc.Start)
	t.setCursor(inc.Start)
}
