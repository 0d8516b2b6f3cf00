package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studygroup/middleware"
	"studygroup/models"
	"studygroup/services"
	"studygroup/store"
)

// GroupController 群组控制器
type GroupController struct {
	GroupService *services.GroupService
}

// NewGroupController 创建群组控制器
func NewGroupController(groupService *services.GroupService) *GroupController {
	return &GroupController{
		GroupService: groupService,
	}
}

// CreateGroup 创建群组
func (c *GroupController) CreateGroup(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	var req models.GroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	id, err := c.GroupService.CreateGroup(ctx.Request.Context(), req.Name, req.Description, caller)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"id": id})
}

// JoinGroup 加入群组
func (c *GroupController) JoinGroup(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	status, err := c.GroupService.JoinGroup(ctx.Request.Context(), groupID, caller)
	if err != nil {
		respondError(ctx, err)
		return
	}

	message := "Successfully joined the group"
	if status == store.StatusAlreadyMember {
		message = "You are already a member of this group"
	}
	ctx.JSON(http.StatusOK, gin.H{"status": status, "message": message})
}

// PostMessage 发送群组消息
func (c *GroupController) PostMessage(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var req models.MessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	if _, err := c.GroupService.PostMessage(ctx.Request.Context(), groupID, req.Content, caller); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"status": "posted", "message": "Message posted successfully"})
}

// GetGroups 获取群组列表，view=summary 时返回轻量视图
func (c *GroupController) GetGroups(ctx *gin.Context) {
	switch view := ctx.DefaultQuery("view", "full"); view {
	case "full":
		ctx.JSON(http.StatusOK, gin.H{"groups": c.GroupService.ListGroups()})
	case "summary":
		ctx.JSON(http.StatusOK, gin.H{"groups": c.GroupService.ListGroupSummaries()})
	default:
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的视图: " + view})
	}
}

// GetGroupByID 根据ID获取群组
func (c *GroupController) GetGroupByID(ctx *gin.Context) {
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	group, err := c.GroupService.GetGroupByID(groupID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"group": group})
}

// GetGroupDiscussions 分页获取群组消息
func (c *GroupController) GetGroupDiscussions(ctx *gin.Context) {
	groupID, ok := groupIDParam(ctx)
	if !ok {
		return
	}

	var page models.PageQuery
	if err := ctx.ShouldBindQuery(&page); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "分页参数错误: " + err.Error()})
		return
	}

	messages, err := c.GroupService.GetGroupDiscussions(groupID, page.Skip, page.Limit)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"messages": messages})
}

// requireCaller 从上下文中获取调用者身份
func requireCaller(ctx *gin.Context) (models.Principal, bool) {
	caller, ok := middleware.CallerFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "未认证"})
		return "", false
	}
	return caller, true
}

// groupIDParam 解析路径中的群组ID
func groupIDParam(ctx *gin.Context) (models.GroupID, bool) {
	groupID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "无效的群组ID"})
		return 0, false
	}
	return models.GroupID(groupID), true
}
